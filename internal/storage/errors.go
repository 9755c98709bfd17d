package storage

import "errors"

var (
	// ErrMissingCategory indicates a record without a category or subcategory.
	ErrMissingCategory = errors.New("category and subcategory are required")
	// ErrUnknownTransactionType indicates a type other than Stock In or Stock Out.
	ErrUnknownTransactionType = errors.New("transaction type must be Stock In or Stock Out")
	// ErrInvalidQuantity indicates a negative transaction quantity.
	ErrInvalidQuantity = errors.New("quantity must be a non-negative number")
	// ErrMissingTemplateName is returned when a template is saved without a name.
	ErrMissingTemplateName = errors.New("template name is required")
	// ErrTemplateExists is returned when a template name is already taken within a category.
	ErrTemplateExists = errors.New("template already exists for this category")
	// ErrTemplateNotFound is returned when no template matches the category and name.
	ErrTemplateNotFound = errors.New("template not found")
)
