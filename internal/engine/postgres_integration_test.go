//go:build integration

package engine

import (
	"context"
	"testing"

	"github.com/hlop3z/addenda/internal/connector"
	"github.com/hlop3z/addenda/internal/testutil"
)

func TestAmendPostgres(t *testing.T) {
	ctx := context.Background()
	db, _ := testutil.SetupPostgres(t)
	set, conn := newSet(t, db)

	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Append(humanPatch()))
	testutil.Must(t, set.Amend(ctx))
	testutil.Must(t, set.Amend(ctx))

	st, err := set.Status(ctx)
	testutil.Must(t, err)
	testutil.AssertEqual(t, st.Dialect, "postgres")
	testutil.AssertEqual(t, st.Applied, 2)
	testutil.AssertEqual(t, appliedCount(t, db), 2)
	testutil.AssertEqual(t, testutil.QueryInt(t, db, `SELECT COUNT(*) FROM "Human" WHERE "age" = 0`), 1)
	testutil.AssertEqual(t, conn.closed, conn.opened)
}

func TestAmendPostgresPgx(t *testing.T) {
	ctx := context.Background()
	db, url := testutil.SetupPostgres(t)

	c, err := connector.FromURL(url, "pgx")
	testutil.Must(t, err)
	set := New(Config{Connector: c, Logger: quietLogger()})

	testutil.Must(t, set.Append(personPatch()))
	testutil.Must(t, set.Amend(ctx))
	testutil.AssertEqual(t, appliedCount(t, db), 1)
	testutil.AssertEqual(t, testutil.QueryInt(t, db, `SELECT COUNT(*) FROM "Person"`), 1)
}
