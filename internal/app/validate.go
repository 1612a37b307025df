package app

import (
	"context"
	"fmt"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"productmd/internal/types"
)

func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	location, err := requirePath(req.Path, "metadata path")
	if err != nil {
		return ValidateResult{}, err
	}
	doc, err := s.load(ctx, location)
	if err != nil {
		return ValidateResult{}, err
	}
	assert.NotEmpty(ctx, string(doc.kind), "decoded document must carry a kind")
	result := ValidateResult{Kind: doc.kind, Revision: doc.source}
	if compose, ok := composeOf(doc.manifest); ok {
		result.ComposeID = compose.ID
	}
	return result, nil
}

func invalidManifestKind(location string, kind types.EntityKind) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unexpected metadata type %s in %s", kind, location))
}
