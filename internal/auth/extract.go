package auth

// Extractor pulls a token out of one known login response shape.
type Extractor struct {
	Name    string
	Extract func(body map[string]any) (string, bool)
}

// Extractors lists the recognised response shapes in precedence order. The
// first one yielding a non-empty string wins.
var Extractors = []Extractor{
	{Name: "data.accessToken", Extract: field("data", "accessToken")},
	{Name: "data.access_token", Extract: field("data", "access_token")},
	{Name: "accessToken", Extract: field("accessToken")},
	{Name: "token", Extract: field("token")},
}

// ExtractToken applies Extractors in order and returns the token and the name
// of the shape it came from. Both are empty when nothing matched.
func ExtractToken(body map[string]any) (token, source string) {
	for _, e := range Extractors {
		if t, ok := e.Extract(body); ok {
			return t, e.Name
		}
	}
	return "", ""
}

func field(path ...string) func(map[string]any) (string, bool) {
	return func(body map[string]any) (string, bool) {
		var cur any = body
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			if cur, ok = m[key]; !ok {
				return "", false
			}
		}
		s, ok := cur.(string)
		return s, ok && s != ""
	}
}
