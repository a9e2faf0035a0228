package userrepo

import (
	"testing"

	"github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/firestore/testutil"
	userrepoport "github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/userrepo"
)

func TestContract_FirestoreUserRepo(t *testing.T) {
	client, prefix := testutil.OpenEmulatorClient(t)

	contracttest.RunUserRepo(t, func(t *testing.T) (userrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(client, prefix+"users"), nil
	})
}
