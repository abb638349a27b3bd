package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses the DSL into an AST
type Parser struct {
	lexer   *Lexer
	current *Token
	peek    *Token
	errors  []string
}

// NewParser creates a new Parser
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{
		lexer:  lexer,
		errors: []string{},
	}

	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()

	return p
}

// Parse is a shortcut for NewParser(NewLexer(input)).Parse()
func Parse(input string) (*SchemaAST, error) {
	return NewParser(NewLexer(input)).Parse()
}

func (p *Parser) nextToken() {
	p.current = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil {
		p.errors = append(p.errors, err.Error())
		p.peek = &Token{Type: TOKEN_EOF}
	} else {
		p.peek = tok
	}
}

func (p *Parser) currentTokenIs(t TokenType) bool {
	return p.current != nil && p.current.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peek != nil && p.peek.Type == t
}

// expectPeek checks if the next token is of the expected type and advances
func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead at %d:%d",
		tokenNames[t], tokenNames[p.peek.Type], p.peek.Line, p.peek.Column)
	p.errors = append(p.errors, msg)
}

func (p *Parser) unexpected(where string) {
	p.errors = append(p.errors, fmt.Sprintf("unexpected token %s in %s at %d:%d",
		tokenNames[p.current.Type], where, p.current.Line, p.current.Column))
}

// Parse parses the entire schema
func (p *Parser) Parse() (*SchemaAST, error) {
	schema := &SchemaAST{
		Enums:  []*EnumAST{},
		Models: []*ModelAST{},
	}

	for !p.currentTokenIs(TOKEN_EOF) {
		switch {
		case p.currentTokenIs(TOKEN_ENUM):
			if enum := p.parseEnum(); enum != nil {
				schema.Enums = append(schema.Enums, enum)
			} else {
				p.nextToken()
			}
		case p.currentTokenIs(TOKEN_MODEL):
			if model := p.parseModel(); model != nil {
				schema.Models = append(schema.Models, model)
			} else {
				p.nextToken()
			}
		case p.currentTokenIs(TOKEN_AUTHORIZATION):
			auth := p.parseAuthorization()
			if auth == nil {
				p.nextToken()
				continue
			}
			if schema.Authorization != nil {
				p.errors = append(p.errors, "duplicate authorization block")
			}
			schema.Authorization = auth
		default:
			p.errors = append(p.errors, fmt.Sprintf("unexpected token %s at %d:%d, expected 'enum', 'model' or 'authorization'",
				tokenNames[p.current.Type], p.current.Line, p.current.Column))
			p.nextToken()
		}
	}

	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse errors:\n%s", strings.Join(p.errors, "\n"))
	}

	return schema, nil
}

// parseEnum parses "enum Name { A B, C }"
func (p *Parser) parseEnum() *EnumAST {
	enum := &EnumAST{Values: []string{}}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	enum.Name = p.current.Value

	if !p.expectPeek(TOKEN_LBRACE) {
		return nil
	}

	p.nextToken()
	for !p.currentTokenIs(TOKEN_RBRACE) && !p.currentTokenIs(TOKEN_EOF) {
		switch {
		case p.currentTokenIs(TOKEN_IDENTIFIER):
			enum.Values = append(enum.Values, p.current.Value)
		case p.currentTokenIs(TOKEN_COMMA):
		default:
			p.unexpected("enum " + enum.Name)
		}
		p.nextToken()
	}

	if !p.currentTokenIs(TOKEN_RBRACE) {
		p.errors = append(p.errors, fmt.Sprintf("expected '}' at end of enum %s", enum.Name))
		return nil
	}

	p.nextToken()
	return enum
}

// parseModel parses a model definition
func (p *Parser) parseModel() *ModelAST {
	model := &ModelAST{
		Fields:        []*FieldAST{},
		Relationships: []*RelationshipAST{},
		Uniques:       []*UniqueAST{},
		Rules:         []*AllowAST{},
	}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	model.Name = p.current.Value

	if !p.expectPeek(TOKEN_LBRACE) {
		return nil
	}

	p.nextToken()
	for !p.currentTokenIs(TOKEN_RBRACE) && !p.currentTokenIs(TOKEN_EOF) {
		switch {
		case p.currentTokenIs(TOKEN_FIELD):
			if field := p.parseField(); field != nil {
				model.Fields = append(model.Fields, field)
			} else {
				p.synchronize()
			}
		case p.currentTokenIs(TOKEN_HAS_MANY), p.currentTokenIs(TOKEN_HAS_ONE), p.currentTokenIs(TOKEN_BELONGS_TO):
			if rel := p.parseRelationship(); rel != nil {
				model.Relationships = append(model.Relationships, rel)
			} else {
				p.synchronize()
			}
		case p.currentTokenIs(TOKEN_UNIQUE):
			if unique := p.parseUnique(); unique != nil {
				model.Uniques = append(model.Uniques, unique)
			} else {
				p.synchronize()
			}
		case p.currentTokenIs(TOKEN_ALLOW):
			if rule := p.parseAllow(); rule != nil {
				model.Rules = append(model.Rules, rule)
			} else {
				p.synchronize()
			}
		default:
			p.unexpected("model " + model.Name)
			p.nextToken()
		}
	}

	if !p.currentTokenIs(TOKEN_RBRACE) {
		p.errors = append(p.errors, fmt.Sprintf("expected '}' at end of model %s, got %s at %d:%d",
			model.Name, tokenNames[p.current.Type], p.current.Line, p.current.Column))
		return nil
	}

	p.nextToken()
	return model
}

// synchronize skips tokens until the start of the next model member
func (p *Parser) synchronize() {
	p.nextToken()
	for !p.currentTokenIs(TOKEN_EOF) && !p.currentTokenIs(TOKEN_RBRACE) {
		switch p.current.Type {
		case TOKEN_FIELD, TOKEN_HAS_MANY, TOKEN_HAS_ONE, TOKEN_BELONGS_TO, TOKEN_UNIQUE, TOKEN_ALLOW:
			return
		}
		p.nextToken()
	}
}

// parseField parses "field name: type [required] [format name]"
func (p *Parser) parseField() *FieldAST {
	field := &FieldAST{}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	field.Name = p.current.Value

	if !p.expectPeek(TOKEN_COLON) {
		return nil
	}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	field.Type = p.current.Value

	for p.peekTokenIs(TOKEN_REQUIRED) || p.peekTokenIs(TOKEN_FORMAT) {
		p.nextToken()
		if p.currentTokenIs(TOKEN_REQUIRED) {
			field.Required = true
			continue
		}
		if !p.expectPeek(TOKEN_IDENTIFIER) {
			return nil
		}
		field.Format = p.current.Value
	}

	p.nextToken()
	return field
}

// parseRelationship parses "hasMany name: Target(foreignKey)"
func (p *Parser) parseRelationship() *RelationshipAST {
	rel := &RelationshipAST{Kind: p.current.Value}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	rel.Name = p.current.Value

	if !p.expectPeek(TOKEN_COLON) {
		return nil
	}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	rel.Target = p.current.Value

	if !p.expectPeek(TOKEN_LPAREN) {
		return nil
	}
	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	rel.ForeignKey = p.current.Value
	if !p.expectPeek(TOKEN_RPAREN) {
		return nil
	}

	p.nextToken()
	return rel
}

// parseUnique parses "unique a, b"
func (p *Parser) parseUnique() *UniqueAST {
	unique := &UniqueAST{}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	unique.Fields = append(unique.Fields, p.current.Value)

	for p.peekTokenIs(TOKEN_COMMA) {
		p.nextToken()
		if !p.expectPeek(TOKEN_IDENTIFIER) {
			return nil
		}
		unique.Fields = append(unique.Fields, p.current.Value)
	}

	p.nextToken()
	return unique
}

// parseAllow parses "allow strategy [to op, ...] [when "expr"]"
func (p *Parser) parseAllow() *AllowAST {
	rule := &AllowAST{}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	rule.Strategy = p.current.Value

	if p.peekTokenIs(TOKEN_TO) {
		p.nextToken()
		if !p.expectPeek(TOKEN_IDENTIFIER) {
			return nil
		}
		rule.Operations = append(rule.Operations, p.current.Value)
		for p.peekTokenIs(TOKEN_COMMA) {
			p.nextToken()
			if !p.expectPeek(TOKEN_IDENTIFIER) {
				return nil
			}
			rule.Operations = append(rule.Operations, p.current.Value)
		}
	}

	if p.peekTokenIs(TOKEN_WHEN) {
		p.nextToken()
		if !p.expectPeek(TOKEN_STRING) {
			return nil
		}
		rule.Condition = p.current.Value
		rule.HasCondition = true
	}

	p.nextToken()
	return rule
}

// parseAuthorization parses
//
//	authorization {
//	  default apiKey
//	  apiKey expiresInDays 30
//	}
func (p *Parser) parseAuthorization() *AuthorizationAST {
	auth := &AuthorizationAST{}

	if !p.expectPeek(TOKEN_LBRACE) {
		return nil
	}

	p.nextToken()
	for !p.currentTokenIs(TOKEN_RBRACE) && !p.currentTokenIs(TOKEN_EOF) {
		if !p.currentTokenIs(TOKEN_IDENTIFIER) {
			p.unexpected("authorization block")
			p.nextToken()
			continue
		}

		switch p.current.Value {
		case "default":
			if !p.expectPeek(TOKEN_IDENTIFIER) {
				return nil
			}
			auth.DefaultMode = p.current.Value
		case "apiKey":
			if !p.expectPeek(TOKEN_IDENTIFIER) {
				return nil
			}
			if p.current.Value != "expiresInDays" {
				p.errors = append(p.errors, fmt.Sprintf("unknown apiKey setting %q at %d:%d",
					p.current.Value, p.current.Line, p.current.Column))
				return nil
			}
			if !p.expectPeek(TOKEN_NUMBER) {
				return nil
			}
			days, err := strconv.Atoi(p.current.Value)
			if err != nil {
				p.errors = append(p.errors, fmt.Sprintf("invalid expiresInDays %q: %v", p.current.Value, err))
				return nil
			}
			auth.APIKeyExpiresInDays = days
			auth.HasExpiry = true
		default:
			p.errors = append(p.errors, fmt.Sprintf("unknown authorization setting %q at %d:%d",
				p.current.Value, p.current.Line, p.current.Column))
		}
		p.nextToken()
	}

	if !p.currentTokenIs(TOKEN_RBRACE) {
		p.errors = append(p.errors, "expected '}' at end of authorization block")
		return nil
	}

	p.nextToken()
	return auth
}
