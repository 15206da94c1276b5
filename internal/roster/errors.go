package roster

import "github.com/pkg/errors"

var (
	ErrDialogClosed = errors.New("player dialog is not open")
	ErrDialogOpen   = errors.New("player dialog is open")
)
