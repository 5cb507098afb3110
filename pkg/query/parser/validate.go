package parser

import (
	"fmt"
	"strings"
)

/*

This is the equivalent of type-checking the untyped tree.
Not every parsed tree is a valid one.

Grammar rule: identifier.key operator value

A bare key is an attribute. The only identifier is "attribute" and its
aliases, since predictions carry no tags or params.

"created" and "updated" take epoch milliseconds, "id" takes a number,
"name" and "status" take strings, and "status" values must be one of
the lifecycle states.

*/

type ValidIdentifier int

const (
	Attribute ValidIdentifier = iota
)

func (v ValidIdentifier) String() string {
	switch v {
	case Attribute:
		return "attribute"
	default:
		return "unknown"
	}
}

type ValidCompareExpr struct {
	Identifier ValidIdentifier
	Key        string
	Operator   OperatorKind
	Value      any
}

type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

func NewValidationError(format string, a ...any) *ValidationError {
	return &ValidationError{message: fmt.Sprintf(format, a...)}
}

const (
	ID      = "id"
	Name    = "name"
	Status  = "status"
	Created = "created"
	Updated = "updated"
)

var searchableAttributes = []string{ID, Name, Status, Created, Updated}

var statuses = []string{"PENDING", "RUNNING", "COMPLETED", "FAILED"}

func parseValidIdentifier(identifier string) (ValidIdentifier, error) {
	switch identifier {
	case "", "attribute", "attr", "attributes", "prediction", "predictions":
		return Attribute, nil
	default:
		return -1, NewValidationError("invalid identifier %q", identifier)
	}
}

func parseAttributeKey(key string) (string, error) {
	switch strings.ToLower(key) {
	case ID, "prediction_id":
		return ID, nil
	case Name, "prediction_name":
		return Name, nil
	case Status:
		return Status, nil
	case Created, "created_at":
		return Created, nil
	case Updated, "updated_at":
		return Updated, nil
	default:
		return "", NewValidationError(
			"invalid attribute key %q. Allowed values are %v",
			key,
			searchableAttributes,
		)
	}
}

// Column maps a validated attribute key to its column name.
func Column(key string) string {
	switch key {
	case Created:
		return "created_at"
	case Updated:
		return "updated_at"
	default:
		return key
	}
}

func validateStatus(operator OperatorKind, value Value) (any, error) {
	check := func(status string) error {
		for _, known := range statuses {
			if status == known {
				return nil
			}
		}

		return NewValidationError("invalid status %q. Allowed values are %v", status, statuses)
	}

	switch value := value.(type) {
	case StringExpr:
		if operator == Like || operator == ILike {
			return value.Value, nil
		}

		if err := check(value.Value); err != nil {
			return nil, err
		}

		return value.Value, nil
	case StringListExpr:
		for _, status := range value.Values {
			if err := check(status); err != nil {
				return nil, err
			}
		}

		return value.Values, nil
	default:
		return nil, NewValidationError("expected a quoted string value for status. Found %v", value)
	}
}

func validateAttributeValue(key string, operator OperatorKind, value Value) (any, error) {
	switch key {
	case ID, Created, Updated:
		number, ok := value.(NumberExpr)
		if !ok {
			return nil, NewValidationError(
				"expected numeric value type for numeric attribute: %s. Found %v",
				key,
				value,
			)
		}

		switch operator {
		case Like, ILike:
			return nil, NewValidationError("%s does not support %s", key, operator)
		default:
			return int64(number.Value), nil
		}
	case Status:
		return validateStatus(operator, value)
	default:
		if _, ok := value.(NumberExpr); ok {
			return nil, NewValidationError("expected a quoted string value for %s. Found %v", key, value)
		}

		return value.value(), nil
	}
}

// ValidateExpression type-checks one comparison against the searchable
// prediction attributes.
func ValidateExpression(expression *CompareExpr) (*ValidCompareExpr, error) {
	validIdentifier, err := parseValidIdentifier(expression.Left.Identifier)
	if err != nil {
		return nil, fmt.Errorf("error on parsing filter expression: %w", err)
	}

	validKey, err := parseAttributeKey(expression.Left.Key)
	if err != nil {
		return nil, fmt.Errorf("error on parsing filter expression: %w", err)
	}

	value, err := validateAttributeValue(validKey, expression.Operator, expression.Right)
	if err != nil {
		return nil, fmt.Errorf("error on parsing filter expression: %w", err)
	}

	return &ValidCompareExpr{
		Identifier: validIdentifier,
		Key:        validKey,
		Operator:   expression.Operator,
		Value:      value,
	}, nil
}
