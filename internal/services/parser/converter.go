package parser

import (
	"fmt"

	"github.com/flockhq/flock/internal/entities"
)

// ASTToSchema converts a validated SchemaAST to entities.Schema
func ASTToSchema(ast *SchemaAST) (*entities.Schema, error) {
	schema := &entities.Schema{
		Enums:         make([]*entities.Enum, 0, len(ast.Enums)),
		Models:        make([]*entities.Model, 0, len(ast.Models)),
		Authorization: entities.DefaultAuthorization(),
	}

	enums := make(map[string]bool, len(ast.Enums))
	for _, enumAST := range ast.Enums {
		schema.Enums = append(schema.Enums, &entities.Enum{
			Name:   enumAST.Name,
			Values: append([]string(nil), enumAST.Values...),
		})
		enums[enumAST.Name] = true
	}

	for _, modelAST := range ast.Models {
		model, err := convertModel(modelAST, enums)
		if err != nil {
			return nil, fmt.Errorf("failed to convert model %s: %w", modelAST.Name, err)
		}
		schema.Models = append(schema.Models, model)
	}

	if ast.Authorization != nil {
		if ast.Authorization.DefaultMode != "" {
			schema.Authorization.DefaultMode = ast.Authorization.DefaultMode
		}
		if ast.Authorization.HasExpiry {
			schema.Authorization.APIKeyExpiresInDays = ast.Authorization.APIKeyExpiresInDays
		}
	}

	return schema, nil
}

func convertModel(ast *ModelAST, enums map[string]bool) (*entities.Model, error) {
	model := &entities.Model{
		Name:          ast.Name,
		Fields:        make([]*entities.Field, 0, len(ast.Fields)),
		Relationships: make([]*entities.Relationship, 0, len(ast.Relationships)),
		Uniques:       make([][]string, 0, len(ast.Uniques)),
		Rules:         make([]*entities.AuthRule, 0, len(ast.Rules)),
	}

	for _, fieldAST := range ast.Fields {
		field := &entities.Field{
			Name:     fieldAST.Name,
			Required: fieldAST.Required,
			Format:   fieldAST.Format,
		}
		switch {
		case builtinTypes[fieldAST.Type]:
			field.Type = entities.FieldType(fieldAST.Type)
		case enums[fieldAST.Type]:
			field.Type = entities.FieldTypeEnum
			field.Enum = fieldAST.Type
		default:
			return nil, fmt.Errorf("field %s has unknown type %s", fieldAST.Name, fieldAST.Type)
		}
		model.Fields = append(model.Fields, field)
	}

	for _, relAST := range ast.Relationships {
		model.Relationships = append(model.Relationships, &entities.Relationship{
			Name:       relAST.Name,
			Kind:       entities.RelationshipKind(relAST.Kind),
			Target:     relAST.Target,
			ForeignKey: relAST.ForeignKey,
		})
	}

	for _, uniqueAST := range ast.Uniques {
		model.Uniques = append(model.Uniques, append([]string(nil), uniqueAST.Fields...))
	}

	for _, ruleAST := range ast.Rules {
		rule := &entities.AuthRule{
			Strategy:  entities.AuthStrategy(ruleAST.Strategy),
			Condition: ruleAST.Condition,
		}
		for _, name := range ruleAST.Operations {
			op, ok := entities.ParseOperation(name)
			if !ok {
				return nil, fmt.Errorf("unknown operation %s", name)
			}
			rule.Operations = append(rule.Operations, op)
		}
		model.Rules = append(model.Rules, rule)
	}

	return model, nil
}

// SchemaToAST converts entities.Schema back to SchemaAST
func SchemaToAST(schema *entities.Schema) *SchemaAST {
	ast := &SchemaAST{
		Enums:  make([]*EnumAST, 0, len(schema.Enums)),
		Models: make([]*ModelAST, 0, len(schema.Models)),
	}

	for _, enum := range schema.Enums {
		ast.Enums = append(ast.Enums, &EnumAST{
			Name:   enum.Name,
			Values: append([]string(nil), enum.Values...),
		})
	}

	for _, model := range schema.Models {
		modelAST := &ModelAST{}
		modelAST.Name = model.Name
		for _, f := range model.Fields {
			typeName := string(f.Type)
			if f.Type == entities.FieldTypeEnum {
				typeName = f.Enum
			}
			modelAST.Fields = append(modelAST.Fields, &FieldAST{
				Name:     f.Name,
				Type:     typeName,
				Required: f.Required,
				Format:   f.Format,
			})
		}
		for _, r := range model.Relationships {
			modelAST.Relationships = append(modelAST.Relationships, &RelationshipAST{
				Kind:       string(r.Kind),
				Name:       r.Name,
				Target:     r.Target,
				ForeignKey: r.ForeignKey,
			})
		}
		for _, u := range model.Uniques {
			modelAST.Uniques = append(modelAST.Uniques, &UniqueAST{Fields: append([]string(nil), u...)})
		}
		for _, rule := range model.Rules {
			allow := &AllowAST{
				Strategy:     string(rule.Strategy),
				Condition:    rule.Condition,
				HasCondition: rule.Condition != "",
			}
			for _, op := range rule.Operations {
				allow.Operations = append(allow.Operations, string(op))
			}
			modelAST.Rules = append(modelAST.Rules, allow)
		}
		ast.Models = append(ast.Models, modelAST)
	}

	if schema.Authorization != nil {
		ast.Authorization = &AuthorizationAST{
			DefaultMode:         schema.Authorization.DefaultMode,
			APIKeyExpiresInDays: schema.Authorization.APIKeyExpiresInDays,
			HasExpiry:           schema.Authorization.APIKeyExpiresInDays > 0,
		}
	}

	return ast
}
