// pkg/transfer/schema.go
package transfer

// Document is the interchange shape for a checklist template. Keys are
// snake_case; ids are intentionally absent and regenerated on import.
type Document struct {
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Version        string        `json:"version"`
	ExpectedInputs []InputDoc    `json:"expected_inputs"`
	Sections       []SectionDoc  `json:"sections"`
}

type InputDoc struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Scope    string `json:"scope"`
	Required bool   `json:"required"`
	Hint     string `json:"hint,omitempty"`
}

type SectionDoc struct {
	Key   string    `json:"key"`
	Title string    `json:"title"`
	Order int       `json:"order"`
	Items []ItemDoc `json:"items"`
}

type ItemDoc struct {
	Key                  string  `json:"key"`
	Title                string  `json:"title"`
	Description          string  `json:"description,omitempty"`
	Order                int     `json:"order"`
	Query                string  `json:"query"`
	ValidationRule       RuleDoc `json:"validation_rule"`
	Scope                string  `json:"scope"`
	ExpectedInputBinding string  `json:"expected_input_binding,omitempty"`
	AutoResolve          bool    `json:"auto_resolve"`
}

type RuleDoc struct {
	Type      string   `json:"type"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

// documentSchema validates the raw JSON before any mapping happens, so
// malformed imports are rejected with field-level messages.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "version", "expected_inputs", "sections"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "version": {"type": "string"},
    "expected_inputs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key", "label", "type", "scope"],
        "properties": {
          "key": {"type": "string", "pattern": "^[a-z][a-z0-9_]*$"},
          "label": {"type": "string"},
          "type": {"enum": ["number", "currency", "text"]},
          "scope": {"enum": ["global", "per_store"]},
          "required": {"type": "boolean"},
          "hint": {"type": "string"}
        }
      }
    },
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["key", "title", "order", "items"],
        "properties": {
          "key": {"type": "string"},
          "title": {"type": "string"},
          "order": {"type": "integer"},
          "items": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["key", "title", "order", "query", "validation_rule", "scope"],
              "properties": {
                "key": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "order": {"type": "integer"},
                "query": {"type": "string", "minLength": 1},
                "validation_rule": {
                  "type": "object",
                  "required": ["type"],
                  "properties": {
                    "type": {"enum": [
                      "single_number_required",
                      "must_return_rows",
                      "must_return_no_rows",
                      "number_equals_expected",
                      "number_matches_expected_with_tolerance"
                    ]},
                    "tolerance": {"type": "number", "minimum": 0, "maximum": 1}
                  }
                },
                "scope": {"enum": ["global", "per_store"]},
                "expected_input_binding": {"type": "string"},
                "auto_resolve": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}`
