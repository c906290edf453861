package projection

import (
	"encoding/json"
	"regexp"
)

var (
	httpRequestRe      = regexp.MustCompile(`.*(POST|GET|OPTIONS|PUT|DELETE|HEAD|CONNECT|TRACE|PATCH) .+ HTTP/1\..*`)
	invalidCharRe      = regexp.MustCompile(`(\W+)`)
	invalidCharDomainRe = regexp.MustCompile(`[^\w.\-_]`)
)

// Packetbeat projects packetbeat documents into network/HTTP labels. A
// document with a domain containing characters outside [\w.\-_] is
// skipped: Labels returns nil.
type Packetbeat struct {
	Env string
}

func (p Packetbeat) Labels(source json.RawMessage) map[string]string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(source, &doc); err != nil {
		return nil
	}

	method := "null"
	if request := unmarshalString(doc["request"]); request != "" {
		if m := httpRequestRe.FindStringSubmatch(request); m != nil {
			method = m[1]
			_ = invalidCharRe.ReplaceAllString(method, "")
		}
	}

	server := unmarshalObject(doc["server"])
	domain := unmarshalString(server["domain"])
	if domain != "" && invalidCharDomainRe.MatchString(domain) {
		return nil
	}

	network := unmarshalObject(doc["network"])
	host := unmarshalObject(doc["host"])
	httpObj := unmarshalObject(doc["http"])
	httpResponse := unmarshalObject(httpObj["response"])

	labels := map[string]string{
		"env":                p.Env,
		"job":                "packetbeat",
		"node_name":          unmarshalString(host["name"]),
		"http_method":        method,
		"http_status":        unmarshalString(httpResponse["status_code"]),
		"domain":             domain,
		"status":             unmarshalString(doc["status"]),
		"network_type":       unmarshalString(network["type"]),
		"network_direction":  unmarshalString(network["direction"]),
		"network_protoctol":  unmarshalString(network["protoctol"]),
		"network_transport":  unmarshalString(network["transport"]),
	}
	return labels
}

func (p Packetbeat) Line(source json.RawMessage) string {
	return sortedJSONLine(source)
}

func unmarshalString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func unmarshalObject(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return map[string]json.RawMessage{}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return map[string]json.RawMessage{}
	}
	return obj
}
