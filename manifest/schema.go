package manifest

// Schema is the JSON schema every runtime manifest must satisfy.
const Schema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name"],
	"additionalProperties": false,
	"properties": {
		"name": {
			"type": "string",
			"minLength": 1
		},
		"version": {
			"type": "string"
		},
		"abi": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"memory":        {"type": "string", "minLength": 1},
				"alloc":         {"type": "string", "minLength": 1},
				"free":          {"type": "string", "minLength": 1},
				"assert":        {"type": "string", "minLength": 1},
				"assert_module": {"type": "string", "minLength": 1}
			}
		}
	}
}`
