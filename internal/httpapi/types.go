package httpapi

type ListingsSearchRequest struct {
	ConfigKey     string              `json:"config_key"`
	Filters       map[string]any      `json:"filters"`
	SelectedOrder map[string][]string `json:"selected_order"`
	SectionOrder  []string            `json:"section_order"`
	Page          int                 `json:"page"`
	PerPage       int                 `json:"per_page"`
}

func (p *ListingsSearchRequest) applyDefaults() {
	if p.Filters == nil {
		p.Filters = map[string]any{}
	}
	if p.SelectedOrder == nil {
		p.SelectedOrder = map[string][]string{}
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PerPage == 0 {
		p.PerPage = 24
	}
}

type ReverbListingsRequest struct {
	ConfigKey    string         `json:"config_key"`
	Query        string         `json:"query"`
	CategoryUUID string         `json:"category_uuid"`
	Filters      map[string]any `json:"filters"`
	Page         int            `json:"page"`
	PerPage      int            `json:"per_page"`
}

func (p *ReverbListingsRequest) applyDefaults() {
	if p.Filters == nil {
		p.Filters = map[string]any{}
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PerPage == 0 {
		p.PerPage = 24
	}
}

type ListingsSearchResponse struct {
	Listings    any `json:"listings"`
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}
