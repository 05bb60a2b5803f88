package vision

import (
	"encoding/json"

	"github.com/artbeyondsight/sight/pkg/utils"
	"github.com/invopop/jsonschema"
)

// OutputSchema is the JSON schema the stream model must answer with.
func OutputSchema() (map[string]any, error) {
	return generateJSONSchema[detectionPayload]()
}

func generateJSONSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var value T
	schema := reflector.Reflect(value)

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	out := map[string]any{}
	if err := json.Unmarshal(schemaJSON, &out); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}
