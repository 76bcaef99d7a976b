package site

import "errors"

// Error constants
var (
	ErrRender  = errors.New("site render failed")
	ErrBadForm = errors.New("site bad form")
)
