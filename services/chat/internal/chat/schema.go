package chat

import "github.com/santhosh-tekuri/jsonschema/v5"

// Side-channel payload schemas. Validation runs before decoding so a block
// that parses as JSON but has the wrong shape degrades to malformed instead
// of producing a half-filled struct.

const cartSchemaJSON = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "quantity", "unit_price"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"size": {"type": "string"},
			"quantity": {"type": "integer", "minimum": 1},
			"unit_price": {"type": "number", "minimum": 0},
			"notes": {"type": "string"}
		}
	}
}`

const analyticsSchemaJSON = `{
	"type": "object",
	"required": ["off_menu_requests", "upsell_attempts", "upsell_successes"],
	"properties": {
		"off_menu_requests": {"type": "array", "items": {"type": "string"}},
		"upsell_attempts": {"type": "array", "items": {"type": "string"}},
		"upsell_successes": {"type": "array", "items": {"type": "string"}}
	},
	"additionalProperties": false
}`

const orderSchemaJSON = `{
	"type": "object",
	"required": ["confirmed", "items"],
	"properties": {
		"confirmed": {"type": "boolean"},
		"customer_name": {"type": "string"},
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "quantity"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"size": {"type": "string"},
					"temperature": {"type": "string"},
					"milk": {"type": "string"},
					"ice_level": {"type": "string"},
					"sweetness": {"type": "string"},
					"modifications": {"type": "array", "items": {"type": "string"}},
					"base_price": {"type": "number", "minimum": 0},
					"modifications_price": {"type": "number", "minimum": 0},
					"total_price": {"type": "number", "minimum": 0},
					"quantity": {"type": "integer", "minimum": 1}
				}
			}
		}
	}
}`

var (
	cartSchema      = jsonschema.MustCompileString("cart.schema.json", cartSchemaJSON)
	analyticsSchema = jsonschema.MustCompileString("analytics.schema.json", analyticsSchemaJSON)
	orderSchema     = jsonschema.MustCompileString("order.schema.json", orderSchemaJSON)
)
