package types

const (
	ContextUserKey = "user"
	TokenCookie    = "token"
	ReferralParam  = "ref"
)

// DefaultOrigins are the development front-end origins.
var DefaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// MergeOrigins appends extra origins to the defaults, skipping blanks and
// duplicates.
func MergeOrigins(extra ...string) []string {
	origins := make([]string, 0, len(DefaultOrigins)+len(extra))
	seen := make(map[string]bool)

	for _, origin := range append(append([]string{}, DefaultOrigins...), extra...) {
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		origins = append(origins, origin)
	}

	return origins
}
