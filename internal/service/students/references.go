package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/aanand-mishra/school-students/internal/storage"
	"github.com/aanand-mishra/school-students/internal/types"
	"github.com/aanand-mishra/school-students/internal/utils/apperr"
)

type ReferenceFinder interface {
	FindClassByName(ctx context.Context, name string) (types.Class, error)
	FindSectionByName(ctx context.Context, name string) (types.Section, error)
}

// canonicalizeReferences checks that the class and section named by in exist
// and swaps in their stored spelling. Absent fields are not looked up. The
// returned value is a copy; in is left as it was.
func canonicalizeReferences(ctx context.Context, refs ReferenceFinder, in types.StudentInput) (types.StudentInput, error) {
	out := in

	if in.Class != nil {
		class, err := refs.FindClassByName(ctx, *in.Class)
		if errors.Is(err, storage.ErrNotFound) {
			return types.StudentInput{}, apperr.Invalid(
				fmt.Sprintf("Invalid class '%s'. Class does not exist.", *in.Class))
		}
		if err != nil {
			return types.StudentInput{}, fmt.Errorf("find class %q: %w", *in.Class, err)
		}
		name := class.Name
		out.Class = &name
	}

	if in.Section != nil {
		section, err := refs.FindSectionByName(ctx, *in.Section)
		if errors.Is(err, storage.ErrNotFound) {
			return types.StudentInput{}, apperr.Invalid(
				fmt.Sprintf("Invalid section '%s'. Section does not exist.", *in.Section))
		}
		if err != nil {
			return types.StudentInput{}, fmt.Errorf("find section %q: %w", *in.Section, err)
		}
		name := section.Name
		out.Section = &name
	}

	return out, nil
}
