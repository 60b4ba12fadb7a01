/*
Package errors implements custom error interfaces for the vault.

The idea is to reuse as many errors from this package as possible and define
custom package errors only when absolutely necessary. Errors in this package
are sorted by their usability, and each error provides a short description.
Every returned error is created from one of the registered root errors by
wrapping it with additional context; use the root error's Is method to test
for a category:

	if errors.ErrStale.Is(err) {
		// refresh the view and retry
	}
*/
package errors
