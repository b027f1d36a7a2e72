package courier

import (
	"github.com/tfkr-ae/courier/domain"
)

// PreparedRequest is a request whose placeholders have been substituted and which is ready
// to hand to a Sender.
type PreparedRequest struct {
	Method   string
	URL      string
	Headers  []domain.KeyValue
	Params   []domain.KeyValue
	BodyType string
	Body     string
	FormData []domain.FormItem
}

// PrepareRequest interpolates the URL, every header and param key and value, the body and
// every form field key and value. The source request is not modified.
func PrepareRequest(req *domain.Request, resolved *domain.ResolvedSet) *PreparedRequest {
	prepared := &PreparedRequest{
		Method:   req.Method,
		URL:      Interpolate(req.URL, resolved),
		Headers:  interpolateKeyValues(req.Headers, resolved),
		Params:   interpolateKeyValues(req.Params, resolved),
		BodyType: req.BodyType,
		Body:     Interpolate(req.Body, resolved),
		FormData: make([]domain.FormItem, len(req.FormData)),
	}

	for i, item := range req.FormData {
		prepared.FormData[i] = domain.FormItem{
			Key:     Interpolate(item.Key, resolved),
			Value:   Interpolate(item.Value, resolved),
			Type:    item.Type,
			Enabled: item.Enabled,
		}
	}
	return prepared
}

func interpolateKeyValues(rows []domain.KeyValue, resolved *domain.ResolvedSet) []domain.KeyValue {
	out := make([]domain.KeyValue, len(rows))
	for i, row := range rows {
		out[i] = domain.KeyValue{
			Key:     Interpolate(row.Key, resolved),
			Value:   Interpolate(row.Value, resolved),
			Enabled: row.Enabled,
		}
	}
	return out
}

// ReferencedNames lists the names a request refers to in the URL, its enabled headers, params
// and form fields, and its body, in order of first appearance.
func ReferencedNames(req *domain.Request) []string {
	var templates []string
	templates = append(templates, req.URL)
	for _, row := range req.Headers {
		if row.Enabled {
			templates = append(templates, row.Key, row.Value)
		}
	}
	for _, row := range req.Params {
		if row.Enabled {
			templates = append(templates, row.Key, row.Value)
		}
	}
	templates = append(templates, req.Body)
	for _, item := range req.FormData {
		if item.Enabled {
			templates = append(templates, item.Key, item.Value)
		}
	}

	names := []string{}
	seen := make(map[string]struct{})
	for _, template := range templates {
		for _, name := range ExtractNames(template) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// MissingVariables lists the names referenced by req that resolved does not contain.
func MissingVariables(req *domain.Request, resolved *domain.ResolvedSet) []string {
	missing := []string{}
	for _, name := range ReferencedNames(req) {
		if _, ok := resolved.Get(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
