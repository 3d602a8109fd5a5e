package pagination

// Page is offset pagination as used by the admin screens.
type Page struct {
	Skip  int `form:"skip" json:"skip"`
	Limit int `form:"limit" json:"limit"`
}

type PageInfo struct {
	Skip    int  `json:"skip"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// Normalize clamps negative offsets and fills in a default limit.
func (p Page) Normalize(defaultLimit, maxLimit int) Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// BuildPageInfo trims the look-ahead row fetched by option.ApplyPagination.
func BuildPageInfo[T any](data []*T, page Page) ([]*T, PageInfo) {
	info := PageInfo{Skip: page.Skip, Limit: page.Limit}
	if page.Limit > 0 && len(data) > page.Limit {
		info.HasMore = true
		data = data[:page.Limit]
	}
	return data, info
}
