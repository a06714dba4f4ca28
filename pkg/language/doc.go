// Package language models the content languages of a site and serves them to
// proxy chains.
//
// A Catalog is loaded from YAML, every locale is checked as a BCP 47 tag and
// the W3C form and text direction are derived from it. Source adapts a
// catalog to proxy.Source; DefaultFilters registers the built-in active,
// hide_empty and hide_default filters, and ExpressionFilter turns an
// evaluator expression into a filter:
//
//	catalog, _ := language.LoadFile("languages.yaml")
//	filters := language.DefaultFilters()
//	_ = language.RegisterExpression(filters, "rtl", nil, "is_rtl", nil)
//	slugs := language.NewChain(catalog, filters).
//		Filter("active").
//		Filter("hide_default").
//		GetList(proxy.Args{"fields": "slug"})
package language
