// Package textutil holds the small string transforms used to build output
// names: episode slug title-casing, show name sanitizing, and clip tokens.
package textutil
