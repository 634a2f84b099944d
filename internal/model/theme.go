package model

// ThemeRoleMain identifies the published (live) theme of a shop.
const ThemeRoleMain = "main"

// Theme is a storefront theme as reported by the Admin API.  Exactly one
// theme per shop carries the main role at any time.
type Theme struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Page is the subset of an online store page the installer needs.
type Page struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	TemplateSuffix string `json:"template_suffix"`
}
