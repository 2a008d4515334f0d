package llm_test

import (
	"encoding/json"
	"testing"

	"taskdeck.app/agent/common/llm"
)

func TestParseToolArguments(t *testing.T) {
	type args struct {
		ListID string `json:"list_id"`
		Name   string `json:"name"`
	}

	got, err := llm.ParseToolArguments[args](`{"list_id":"L1","name":"Draft spec"}`)
	if err != nil {
		t.Fatalf("ParseToolArguments() error: %v", err)
	}
	if got.ListID != "L1" || got.Name != "Draft spec" {
		t.Errorf("ParseToolArguments() = %+v", got)
	}
}

func TestParseToolArgumentsInvalidJSON(t *testing.T) {
	type args struct {
		ListID string `json:"list_id"`
	}

	if _, err := llm.ParseToolArguments[args](`{"list_id":`); err == nil {
		t.Fatal("ParseToolArguments() should fail on truncated JSON")
	}
}

func TestGenerateSchemaFrom(t *testing.T) {
	type params struct {
		SpaceID string `json:"space_id" jsonschema:"required,description=The ID of the space"`
		Limit   int    `json:"limit,omitempty" jsonschema:"description=Max results"`
	}

	schema := llm.GenerateSchemaFrom(params{})

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}

	props, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %s", data)
	}
	if _, ok := props["space_id"]; !ok {
		t.Errorf("schema missing space_id property: %s", data)
	}

	required, _ := decoded["required"].([]any)
	found := false
	for _, r := range required {
		if r == "space_id" {
			found = true
		}
	}
	if !found {
		t.Errorf("space_id not marked required: %s", data)
	}
}

func TestNewAgentClientRequiresAPIKey(t *testing.T) {
	if _, err := llm.NewAgentClient(llm.Config{}); err == nil {
		t.Fatal("NewAgentClient() should fail without API key")
	}
}

func TestNewAgentClientUnknownProvider(t *testing.T) {
	if _, err := llm.NewAgentClient(llm.Config{Provider: "cohere", APIKey: "x"}); err == nil {
		t.Fatal("NewAgentClient() should reject unknown providers")
	}
}
