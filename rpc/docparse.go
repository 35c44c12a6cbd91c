package rpc

import "strings"

// Doc is parsed procedure documentation: the first line of the text is
// the summary, the remaining free text the description, and "@param
// name: text" / "@return: text" lines document parameters and the
// result.
type Doc struct {
	Summary     string
	Description string
	Params      map[string]string
	Returns     string
}

// ParamDoc returns the documentation for a named parameter, or "".
func (d Doc) ParamDoc(name string) string {
	return d.Params[name]
}

// ParseDoc parses documentation text. Lines are trimmed; tag lines may
// appear anywhere after the free text.
func ParseDoc(text string) Doc {
	doc := Doc{}
	var body []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "@param "):
			rest := strings.TrimPrefix(line, "@param ")
			name, desc, ok := strings.Cut(rest, ":")
			if !ok {
				continue
			}
			if doc.Params == nil {
				doc.Params = make(map[string]string)
			}
			doc.Params[strings.TrimSpace(name)] = strings.TrimSpace(desc)
		case strings.HasPrefix(line, "@return"):
			rest := strings.TrimPrefix(line, "@return")
			rest = strings.TrimPrefix(rest, "s")
			if desc, ok := strings.CutPrefix(rest, ":"); ok {
				doc.Returns = strings.TrimSpace(desc)
			}
		default:
			body = append(body, line)
		}
	}

	// Trim leading and trailing blank lines from the free text.
	for len(body) > 0 && body[0] == "" {
		body = body[1:]
	}
	for len(body) > 0 && body[len(body)-1] == "" {
		body = body[:len(body)-1]
	}
	if len(body) == 0 {
		return doc
	}
	doc.Summary = body[0]
	rest := body[1:]
	for len(rest) > 0 && rest[0] == "" {
		rest = rest[1:]
	}
	doc.Description = strings.Join(rest, "\n")
	return doc
}
