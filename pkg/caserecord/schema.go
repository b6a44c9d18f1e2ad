package caserecord

// definitionSchemaURL identifies the embedded case definition schema.
const definitionSchemaURL = "https://arbiter.schemas.local/case-definition.schema.json"

// definitionSchema validates case definition documents. The input object is
// checked against the variant-specific shape selected by "variant".
const definitionSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["case_id", "variant", "input"],
  "properties": {
    "case_id": {"type": "string", "minLength": 1, "pattern": "^[A-Za-z0-9][A-Za-z0-9._-]*$"},
    "variant": {"enum": ["appeals", "fincrime"]},
    "input": {"type": "object"}
  },
  "allOf": [
    {
      "if": {"properties": {"variant": {"const": "appeals"}}},
      "then": {"properties": {"input": {"$ref": "#/$defs/appeal"}}}
    },
    {
      "if": {"properties": {"variant": {"const": "fincrime"}}},
      "then": {"properties": {"input": {"$ref": "#/$defs/fincrime"}}}
    }
  ],
  "$defs": {
    "appeal": {
      "type": "object",
      "required": ["documents"],
      "properties": {
        "patient_id": {"type": "string"},
        "urgency": {"enum": ["low", "medium", "high"]},
        "documents": {
          "type": "object",
          "minProperties": 1,
          "additionalProperties": {"type": "string"}
        },
        "image_findings": {
          "type": "object",
          "additionalProperties": {"type": "object"}
        }
      }
    },
    "fincrime": {
      "type": "object",
      "required": ["entities"],
      "properties": {
        "entities": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["id"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "kyc_risk": {"type": "number", "minimum": 0},
              "anomalies": {"type": "integer", "minimum": 0},
              "risk_score": {"type": "number", "minimum": 0},
              "fraud_connections": {"type": "array", "items": {"type": "string"}}
            }
          }
        }
      }
    }
  }
}`
