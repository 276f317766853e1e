package port

// CompletionCache stores raw model replies keyed by a prompt digest.
type CompletionCache interface {
	Get(key string) (string, bool)
	Put(key, value string) error
}
