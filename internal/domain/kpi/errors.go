package kpi

import "errors"

var (
	ErrKPINotFound        = errors.New("kpi not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrValueNotFound      = errors.New("value record not found")
	ErrValueNotPending    = errors.New("value record already resolved")
)
