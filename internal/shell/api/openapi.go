package api

import (
	"reflect"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Document
// =============================================================================

// buildOpenAPIDocument assembles the agent's API description. Schemas are
// reflected from the wire types in types.go so the document stays in step
// with the code.
func buildOpenAPIDocument() *openapi3.T {
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "Deckhand Agent API",
			Version:     "1.0.0",
			Description: "Deployment trigger and history surface of the deckhand agent.",
		},
		Paths: &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}

	spec.Components.Schemas["DeployRequest"] = schemaFromModel(DeployRequest{})
	spec.Components.Schemas["Outcome"] = schemaFromModel(OutcomeResponse{})
	spec.Components.Schemas["DeploymentRecord"] = schemaFromModel(DeploymentRecordResponse{})
	spec.Components.Schemas["DeploymentList"] = schemaFromModel(DeploymentListResponse{})
	spec.Components.Schemas["Health"] = schemaFromModel(HealthResponse{})
	spec.Components.Schemas["Error"] = schemaFromModel(ErrorResponse{})

	deployResponses := &openapi3.Responses{}
	deployResponses.Set("200", jsonResponse("Container deployed and running", "#/components/schemas/Outcome"))
	deployResponses.Set("400", jsonResponse("Malformed JSON body", "#/components/schemas/Error"))
	deployResponses.Set("409", jsonResponse("A deployment for this container name is already in progress", "#/components/schemas/Error"))
	deployResponses.Set("422", jsonResponse("Invalid deployment request", "#/components/schemas/Error"))
	deployResponses.Set("502", jsonResponse("Deployment failed or timed out; the body carries the outcome", "#/components/schemas/Outcome"))

	listResponses := &openapi3.Responses{}
	listResponses.Set("200", jsonResponse("A page of deployment history", "#/components/schemas/DeploymentList"))

	spec.Paths.Set("/api/v1/deployments", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "createDeployment",
			Summary:     "Deploy a container",
			Description: "Runs a deployment synchronously and reports how it ended. Deployments for the same container name are serialized.",
			Tags:        []string{"Deployments"},
			RequestBody: &openapi3.RequestBodyRef{
				Value: openapi3.NewRequestBody().
					WithRequired(true).
					WithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/DeployRequest"}),
			},
			Responses: deployResponses,
		},
		Get: &openapi3.Operation{
			OperationID: "listDeployments",
			Summary:     "List deployment history",
			Tags:        []string{"Deployments"},
			Parameters: openapi3.Parameters{
				queryParam("limit", "Maximum rows to return", intSchema()),
				queryParam("offset", "Rows to skip", intSchema()),
				queryParam("name", "Filter by container name", stringSchema()),
			},
			Responses: listResponses,
		},
	})

	getResponses := &openapi3.Responses{}
	getResponses.Set("200", jsonResponse("One deployment record", "#/components/schemas/DeploymentRecord"))
	getResponses.Set("404", jsonResponse("No deployment with this ID", "#/components/schemas/Error"))

	spec.Paths.Set("/api/v1/deployments/{id}", &openapi3.PathItem{
		Parameters: openapi3.Parameters{
			&openapi3.ParameterRef{
				Value: &openapi3.Parameter{
					Name:     "id",
					In:       "path",
					Required: true,
					Schema:   &openapi3.SchemaRef{Value: stringSchema()},
				},
			},
		},
		Get: &openapi3.Operation{
			OperationID: "getDeployment",
			Summary:     "Get a deployment record",
			Tags:        []string{"Deployments"},
			Responses:   getResponses,
		},
	})

	healthResponses := &openapi3.Responses{}
	healthResponses.Set("200", jsonResponse("Engine reachable", "#/components/schemas/Health"))
	healthResponses.Set("503", jsonResponse("Engine unreachable", "#/components/schemas/Health"))

	spec.Paths.Set("/healthz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "health",
			Summary:     "Engine health",
			Tags:        []string{"Health"},
			Responses:   healthResponses,
		},
	})

	return spec
}

func jsonResponse(description, schemaRef string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchemaRef(&openapi3.SchemaRef{Ref: schemaRef}),
	}
}

func queryParam(name, description string, schema *openapi3.Schema) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:        name,
			In:          "query",
			Description: description,
			Schema:      &openapi3.SchemaRef{Value: schema},
		},
	}
}

func intSchema() *openapi3.Schema {
	return &openapi3.Schema{Type: &openapi3.Types{"integer"}}
}

func stringSchema() *openapi3.Schema {
	return &openapi3.Schema{Type: &openapi3.Types{"string"}}
}

// =============================================================================
// Schema Reflection
// =============================================================================

// schemaFromModel extracts an object schema from a wire struct's json tags.
func schemaFromModel(model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		if propSchema := goTypeToSchema(field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int64"}}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}

	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: goTypeToSchema(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: goTypeToSchema(t.Elem())},
			},
		}

	case reflect.Ptr:
		schema := goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"},
			}
		}
		return schemaFromModel(reflect.New(t).Interface())

	default:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}}
	}
}
