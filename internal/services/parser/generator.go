package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Generator generates DSL from AST
type Generator struct {
	indent string
}

// NewGenerator creates a new Generator
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
	}
}

// Generate generates DSL string from SchemaAST
func (g *Generator) Generate(schema *SchemaAST) string {
	var blocks []string

	for _, enum := range schema.Enums {
		blocks = append(blocks, g.generateEnum(enum))
	}
	for _, model := range schema.Models {
		blocks = append(blocks, g.generateModel(model))
	}
	if schema.Authorization != nil {
		blocks = append(blocks, g.generateAuthorization(schema.Authorization))
	}

	return strings.Join(blocks, "\n")
}

func (g *Generator) generateEnum(enum *EnumAST) string {
	return fmt.Sprintf("enum %s { %s }\n", enum.Name, strings.Join(enum.Values, " "))
}

func (g *Generator) generateModel(model *ModelAST) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("model %s {\n", model.Name))

	for _, field := range model.Fields {
		sb.WriteString(g.indent)
		sb.WriteString(g.generateField(field))
		sb.WriteString("\n")
	}

	for _, rel := range model.Relationships {
		sb.WriteString(g.indent)
		sb.WriteString(fmt.Sprintf("%s %s: %s(%s)", rel.Kind, rel.Name, rel.Target, rel.ForeignKey))
		sb.WriteString("\n")
	}

	for _, unique := range model.Uniques {
		sb.WriteString(g.indent)
		sb.WriteString("unique " + strings.Join(unique.Fields, ", "))
		sb.WriteString("\n")
	}

	for _, rule := range model.Rules {
		sb.WriteString(g.indent)
		sb.WriteString(g.generateAllow(rule))
		sb.WriteString("\n")
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (g *Generator) generateField(field *FieldAST) string {
	s := fmt.Sprintf("field %s: %s", field.Name, field.Type)
	if field.Required {
		s += " required"
	}
	if field.Format != "" {
		s += " format " + field.Format
	}
	return s
}

func (g *Generator) generateAllow(rule *AllowAST) string {
	s := "allow " + rule.Strategy
	if len(rule.Operations) > 0 {
		s += " to " + strings.Join(rule.Operations, ", ")
	}
	if rule.HasCondition {
		s += " when " + quote(rule.Condition)
	}
	return s
}

func (g *Generator) generateAuthorization(auth *AuthorizationAST) string {
	var sb strings.Builder
	sb.WriteString("authorization {\n")
	if auth.DefaultMode != "" {
		sb.WriteString(g.indent + "default " + auth.DefaultMode + "\n")
	}
	if auth.HasExpiry {
		sb.WriteString(g.indent + "apiKey expiresInDays " + strconv.Itoa(auth.APIKeyExpiresInDays) + "\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// quote escapes backslashes and double quotes the way the lexer reads them back
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
