package llm

import (
	"testing"
)

type nestedSchemaFixture struct {
	Title string              `json:"title"`
	Items []leafSchemaFixture `json:"items"`
	Meta  leafSchemaFixture   `json:"meta"`
}

type leafSchemaFixture struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestGenerateSchema_ObjectCompliance(t *testing.T) {
	t.Parallel()
	schema := GenerateSchema[nestedSchemaFixture]()

	if schema[typeKey] != "object" {
		t.Fatalf("type = %v, want object", schema[typeKey])
	}
	if schema[additionalPropertiesKey] != false {
		t.Fatal("additionalProperties not forced to false at the root")
	}

	required, ok := schema[requiredKey].([]string)
	if !ok {
		t.Fatalf("required = %T, want []string", schema[requiredKey])
	}
	want := map[string]bool{"title": false, "items": false, "meta": false}
	for _, field := range required {
		if _, known := want[field]; !known {
			t.Fatalf("unexpected required field %q", field)
		}
		want[field] = true
	}
	for field, seen := range want {
		if !seen {
			t.Fatalf("field %q missing from required", field)
		}
	}
}

func TestGenerateSchema_NestedObjectsCompliant(t *testing.T) {
	t.Parallel()
	schema := GenerateSchema[nestedSchemaFixture]()

	properties := schema[propertiesKey].(map[string]interface{})

	meta := properties["meta"].(map[string]interface{})
	if meta[additionalPropertiesKey] != false {
		t.Fatal("nested object missing additionalProperties=false")
	}

	items := properties["items"].(map[string]interface{})
	element := items[itemsKey].(map[string]interface{})
	if element[additionalPropertiesKey] != false {
		t.Fatal("array element object missing additionalProperties=false")
	}
	if _, ok := element[requiredKey]; !ok {
		t.Fatal("array element object missing required list")
	}
}
