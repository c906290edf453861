package projection

import (
	"encoding/json"
	"testing"
)

func TestPassthroughLabelsUsesJob(t *testing.T) {
	p := Passthrough{Job: "my-index"}
	labels := p.Labels(json.RawMessage(`{}`))
	if labels["job"] != "my-index" {
		t.Errorf("job = %q, want my-index", labels["job"])
	}
}

func TestPassthroughLineSortsKeys(t *testing.T) {
	p := Passthrough{Job: "my-index"}
	source := json.RawMessage(`{"b": 2, "a": 1}`)

	want := `{"a":1,"b":2}`
	if got := p.Line(source); got != want {
		t.Errorf("Line() = %s, want %s", got, want)
	}
}

func TestSortedJSONLinePassesThroughMalformedInput(t *testing.T) {
	malformed := json.RawMessage(`not json`)
	if got := sortedJSONLine(malformed); got != string(malformed) {
		t.Errorf("sortedJSONLine() = %s, want unchanged %s", got, malformed)
	}
}
