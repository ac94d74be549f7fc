package storage

import (
	"os"
	"testing"

	"github.com/lifeplan/service/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithEmbeddedDB(m))
}
