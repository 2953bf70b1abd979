package model

import "errors"

// Domain errors. The ledger detects all of these before applying any
// mutation, so a caller seeing one knows nothing was changed.
var (
	ErrInsufficientStock = errors.New("requested quantity exceeds remaining stock")
	ErrNegativeStock     = errors.New("adjustment would drive total stock below zero")
	ErrInvalidTransition = errors.New("request status does not allow this action")
	ErrOverReturn        = errors.New("return exceeds the outstanding issued quantity")
	ErrDuplicatePending  = errors.New("a pending request for this item already exists")
	ErrNotOwner          = errors.New("request belongs to another user")
	ErrNotFound          = errors.New("not found")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
)
