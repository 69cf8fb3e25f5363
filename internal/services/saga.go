package services

import (
	"context"
	"errors"
	"log"

	"github.com/leavedesk/apiserver/internal/directory"
	"github.com/leavedesk/apiserver/internal/store"
	"github.com/leavedesk/apiserver/types"
)

// ProvisionSaga performs the two-system provisioning write as an explicit
// reserve, commit, compensate sequence: reserve the identity in the
// external directory, commit the local row, and on commit failure delete the
// reserved identity again. Compensation is best-effort: its failure is logged
// but the commit error is what surfaces.
type ProvisionSaga struct {
	dir directory.Directory
}

// NewProvisionSaga constructs a saga over the given directory. A nil
// directory makes provisioning local-only.
func NewProvisionSaga(dir directory.Directory) *ProvisionSaga {
	return &ProvisionSaga{dir: dir}
}

// Run executes the saga. commit inserts the local record.
func (s *ProvisionSaga) Run(
	ctx context.Context,
	ident directory.Identity,
	password string,
	commit func(ctx context.Context) (types.User, error),
) (types.User, error) {
	if s == nil || s.dir == nil {
		return commit(ctx)
	}

	reserved, err := s.dir.Create(ctx, ident, password)
	if err != nil {
		if errors.Is(err, directory.ErrConflict) {
			return types.User{}, store.ErrDuplicate
		}
		return types.User{}, err
	}

	user, err := commit(ctx)
	if err != nil {
		if compErr := s.dir.Delete(ctx, reserved.ID); compErr != nil {
			log.Printf("provision: compensate directory identity %s: %v", reserved.ID, compErr)
		}
		return types.User{}, err
	}
	return user, nil
}
