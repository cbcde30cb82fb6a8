package util

// Ptr returns &v. Handy for optional fields such as batch.Job.MaxRows or
// httpclient.Options.MaxRedirects.
func Ptr[T any](v T) *T {
	return &v
}
