package core_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/buzz/auth"
	"github.com/wansing/buzz/core"
	"github.com/wansing/buzz/memdb"
	"github.com/wansing/buzz/record"
	"go.uber.org/zap"
)

var (
	employee = &auth.Credential{ID: "e-1", FirstName: "Eve", LastName: "Employee", Department: "Content", Title: auth.Employee, Location: "Berlin"}
	manager  = &auth.Credential{ID: "m-1", FirstName: "Max", LastName: "Manager", Department: "Content", Title: auth.Manager, Location: "Berlin"}
)

func newCatalog(db core.DocumentDB) *core.Catalog {
	return core.NewCatalog(db, auth.DefaultPolicies(), zap.NewNop())
}

func trivia(question string) core.Document {
	return core.Document{
		record.KeyQuestion: question,
		record.KeyAnswer:   "42",
		record.KeyLanguage: "en",
	}
}

func quote(content string) core.Document {
	return core.Document{
		record.KeyContent:  content,
		record.KeyAuthor:   "Anonymous",
		record.KeyLanguage: "en",
	}
}

func idOf(t *testing.T, res core.Result) string {
	t.Helper()
	require.True(t, res.Success, "%s: %s", res.Kind, res.Message)
	data, ok := res.Data.(core.Document)
	require.True(t, ok, "data is %T", res.Data)
	id, ok := data[record.KeyID].(string)
	require.True(t, ok)
	return id
}

func count(t *testing.T, db core.DocumentDB, collection string) int {
	t.Helper()
	n, err := db.Count(context.Background(), collection, nil)
	require.NoError(t, err)
	return n
}

func TestProposeApprove(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	proposed := catalog.Create(ctx, employee, record.TypeTrivia, trivia("Why?"))
	assert.Equal(t, core.PendingSuccess, proposed.Kind)
	assert.Equal(t, 202, proposed.Kind.Status())
	var pendingID = idOf(t, proposed)

	assert.Equal(t, 1, count(t, db, "trivia_private"))
	assert.Equal(t, 0, count(t, db, "trivia_public"))

	// employees can't see the queue
	assert.Equal(t, core.PermissionDenied, catalog.ListPending(ctx, employee, record.TypeTrivia, nil, 0).Kind)

	listed := catalog.ListPending(ctx, manager, record.TypeTrivia, nil, 0)
	require.True(t, listed.Success)
	var docs = listed.Data.([]core.Document)
	require.Len(t, docs, 1)
	assert.Equal(t, pendingID, docs[0][record.KeyID])
	assert.Equal(t, false, docs[0][record.KeyIsEdit])
	assert.NotContains(t, docs[0], core.IDKey)

	assert.Equal(t, core.PermissionDenied, catalog.Approve(ctx, employee, record.TypeTrivia, pendingID).Kind)

	approved := catalog.Approve(ctx, manager, record.TypeTrivia, pendingID)
	assert.Equal(t, core.GeneralSuccess, approved.Kind)
	var publishedID = idOf(t, approved)

	assert.Equal(t, 0, count(t, db, "trivia_private"))
	assert.Equal(t, 1, count(t, db, "trivia_public"))

	published := catalog.Get(ctx, employee, record.TypeTrivia, publishedID)
	require.True(t, published.Success)
	var doc = published.Data.(core.Document)
	assert.Equal(t, "Why?", doc[record.KeyQuestion])
	assert.NotContains(t, doc, record.KeyIsEdit)
	assert.NotContains(t, doc, record.KeyRefID)

	// approving twice finds nothing
	assert.Equal(t, core.NotFound, catalog.Approve(ctx, manager, record.TypeTrivia, pendingID).Kind)
	assert.Equal(t, 1, count(t, db, "trivia_public"))
}

func TestDeny(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	var pendingID = idOf(t, catalog.Create(ctx, employee, record.TypeTrivia, trivia("Why?")))

	assert.Equal(t, core.PermissionDenied, catalog.Deny(ctx, employee, record.TypeTrivia, pendingID).Kind)
	assert.Equal(t, 1, count(t, db, "trivia_private"))

	assert.Equal(t, core.GeneralSuccess, catalog.Deny(ctx, manager, record.TypeTrivia, pendingID).Kind)
	assert.Equal(t, 0, count(t, db, "trivia_private"))
	assert.Equal(t, 0, count(t, db, "trivia_public"))

	assert.Equal(t, core.NotFound, catalog.Deny(ctx, manager, record.TypeTrivia, pendingID).Kind)
}

func TestManagerPublishesDirectly(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	created := catalog.Create(ctx, manager, record.TypeTrivia, trivia("Why?"))
	assert.Equal(t, core.PostSuccess, created.Kind)
	assert.Equal(t, 201, created.Kind.Status())
	assert.Equal(t, 0, count(t, db, "trivia_private"))
	assert.Equal(t, 1, count(t, db, "trivia_public"))
}

func TestEditProposal(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	var publishedID = idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("Old?")))

	proposed := catalog.Update(ctx, employee, record.TypeTrivia, publishedID, trivia("New?"))
	assert.Equal(t, core.PendingSuccess, proposed.Kind)
	var pendingID = idOf(t, proposed)

	pending, err := db.FindOne(ctx, "trivia_private", core.Filter{core.IDKey: pendingID})
	require.NoError(t, err)
	assert.Equal(t, true, pending[record.KeyIsEdit])
	assert.Equal(t, publishedID, pending[record.KeyRefID])

	// the published record is untouched until approval
	assert.Equal(t, "Old?", catalog.Get(ctx, employee, record.TypeTrivia, publishedID).Data.(core.Document)[record.KeyQuestion])

	approved := catalog.Approve(ctx, manager, record.TypeTrivia, pendingID)
	assert.Equal(t, publishedID, idOf(t, approved))

	assert.Equal(t, 1, count(t, db, "trivia_public"))
	assert.Equal(t, 0, count(t, db, "trivia_private"))

	var doc = catalog.Get(ctx, employee, record.TypeTrivia, publishedID).Data.(core.Document)
	assert.Equal(t, "New?", doc[record.KeyQuestion])
	assert.NotContains(t, doc, record.KeyIsEdit)
	assert.NotContains(t, doc, record.KeyRefID)
}

func TestEditProposalTarget(t *testing.T) {
	var ctx = context.Background()
	var catalog = newCatalog(memdb.New())

	assert.Equal(t, core.NotFound, catalog.Update(ctx, employee, record.TypeTrivia, "0123456789abcdef01234567", trivia("New?")).Kind)
	assert.Equal(t, core.MalformedContent, catalog.Update(ctx, employee, record.TypeTrivia, "42", trivia("New?")).Kind)
}

func TestDirectUpdate(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	var id = idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("Old?")))

	updated := catalog.Update(ctx, manager, record.TypeTrivia, id, trivia("New?"))
	assert.Equal(t, core.GeneralSuccess, updated.Kind)
	assert.Equal(t, 0, count(t, db, "trivia_private"))
	assert.Equal(t, "New?", catalog.Get(ctx, employee, record.TypeTrivia, id).Data.(core.Document)[record.KeyQuestion])

	assert.Equal(t, core.NotFound, catalog.Update(ctx, manager, record.TypeTrivia, "0123456789abcdef01234567", trivia("New?")).Kind)
}

func TestValidation(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	var incomplete = trivia("Why?")
	delete(incomplete, record.KeyAnswer)
	assert.Equal(t, core.InvalidRecord, catalog.Create(ctx, employee, record.TypeTrivia, incomplete).Kind)
	assert.Equal(t, core.MalformedContent, catalog.Create(ctx, employee, record.TypeTrivia, core.Document{}).Kind)

	// markup is stripped before validation
	var markup = trivia("<script>x</script>")
	assert.Equal(t, core.InvalidRecord, catalog.Create(ctx, employee, record.TypeTrivia, markup).Kind)

	var id = idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("<b>Bold</b> question?")))
	assert.Equal(t, "Bold question?", catalog.Get(ctx, employee, record.TypeTrivia, id).Data.(core.Document)[record.KeyQuestion])
}

func TestPermissions(t *testing.T) {
	var ctx = context.Background()
	var catalog = newCatalog(memdb.New())

	var id = idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("Why?")))

	denied := catalog.Create(ctx, nil, record.TypeTrivia, trivia("Why?"))
	assert.Equal(t, core.PermissionDenied, denied.Kind)
	assert.Equal(t, "no credential", denied.Message)

	assert.Equal(t, core.PermissionDenied, catalog.List(ctx, nil, record.TypeTrivia, nil, 0).Kind)
	assert.Equal(t, core.PermissionDenied, catalog.Delete(ctx, employee, record.TypeTrivia, id).Kind)
	assert.Equal(t, core.PermissionDenied, catalog.DeleteWhere(ctx, employee, record.TypeTrivia, core.Filter{record.KeyLanguage: "en"}).Kind)

	assert.True(t, catalog.List(ctx, employee, record.TypeTrivia, nil, 0).Success)
	assert.Equal(t, core.GeneralSuccess, catalog.Delete(ctx, manager, record.TypeTrivia, id).Kind)
	assert.Equal(t, core.NotFound, catalog.Get(ctx, employee, record.TypeTrivia, id).Kind)
}

func TestListFilter(t *testing.T) {
	var ctx = context.Background()
	var catalog = newCatalog(memdb.New())

	var id = idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("One?")))
	idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("Two?")))

	all := catalog.List(ctx, employee, record.TypeTrivia, nil, 0)
	assert.Len(t, all.Data, 2)

	limited := catalog.List(ctx, employee, record.TypeTrivia, nil, 1)
	assert.Len(t, limited.Data, 1)

	byID := catalog.List(ctx, employee, record.TypeTrivia, core.Filter{record.KeyID: id}, 0)
	require.True(t, byID.Success)
	require.Len(t, byID.Data, 1)
	assert.Equal(t, "One?", byID.Data.([]core.Document)[0][record.KeyQuestion])

	var upper = strings.ToUpper(id)
	byRawID := catalog.List(ctx, employee, record.TypeTrivia, core.Filter{core.IDKey: upper}, 0)
	require.True(t, byRawID.Success)
	assert.Len(t, byRawID.Data, 1)

	got := catalog.Get(ctx, employee, record.TypeTrivia, upper)
	require.True(t, got.Success, "%s: %s", got.Kind, got.Message)
	assert.Equal(t, id, got.Data.(core.Document)[record.KeyID])

	counted := catalog.Count(ctx, employee, record.TypeTrivia, core.Filter{record.KeyQuestion: "Two?"})
	require.True(t, counted.Success)
	assert.Equal(t, 1, counted.Data)

	for _, filter := range []core.Filter{
		{"$where": "1"},
		{"content.$": "x"},
		{record.KeyID: "nothex"},
		{core.IDKey: int64(5)},
		{core.IDKey: "nothex"},
		{record.KeyQuestion: core.Document{"$ne": ""}},
		{record.KeyQuestion: []interface{}{"a"}},
	} {
		assert.Equal(t, core.InvalidFilter, catalog.List(ctx, employee, record.TypeTrivia, filter, 0).Kind, "%v", filter)
	}
}

func TestDeleteWhere(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("One?")))
	var german = trivia("Zwei?")
	german[record.KeyLanguage] = "de"
	idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, german))

	var twoFields = core.Filter{record.KeyLanguage: "de", record.KeyAnswer: "42"}
	assert.Equal(t, core.MalformedContent, catalog.DeleteWhere(ctx, manager, record.TypeTrivia, twoFields).Kind)
	assert.Equal(t, core.MalformedContent, catalog.DeleteWhere(ctx, manager, record.TypeTrivia, core.Filter{}).Kind)
	assert.Equal(t, 2, count(t, db, "trivia_public"))

	deleted := catalog.DeleteWhere(ctx, manager, record.TypeTrivia, core.Filter{record.KeyLanguage: "de"})
	assert.Equal(t, core.GeneralSuccess, deleted.Kind)
	assert.Equal(t, core.Document{"deleted": 1}, deleted.Data)
	assert.Equal(t, 1, count(t, db, "trivia_public"))

	assert.Equal(t, core.NotFound, catalog.DeleteWhere(ctx, manager, record.TypeTrivia, core.Filter{record.KeyLanguage: "de"}).Kind)
}

func TestRandomLowInventory(t *testing.T) {
	var ctx = context.Background()
	var catalog = newCatalog(memdb.New())

	idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("One?")))
	idOf(t, catalog.Create(ctx, manager, record.TypeTrivia, trivia("Two?")))

	sampled := catalog.Random(ctx, employee, record.TypeTrivia, 5, nil)
	require.True(t, sampled.Success)
	assert.Len(t, sampled.Data, 2)
	assert.Len(t, sampled.Warnings, 1)

	sampled = catalog.Random(ctx, employee, record.TypeTrivia, 1, nil)
	assert.Len(t, sampled.Data, 1)
	assert.Empty(t, sampled.Warnings)

	assert.Equal(t, core.MalformedContent, catalog.Random(ctx, employee, record.TypeTrivia, 0, nil).Kind)
}

func TestShort(t *testing.T) {
	var ctx = context.Background()
	var catalog = newCatalog(memdb.New())

	idOf(t, catalog.Create(ctx, manager, record.TypeQuote, quote("Short.")))
	idOf(t, catalog.Create(ctx, manager, record.TypeQuote, quote("This quote is much longer than the short one and will not be sampled with a small maximum.")))

	short := catalog.Short(ctx, employee, record.TypeQuote, 2, 80, nil)
	require.True(t, short.Success)
	require.Len(t, short.Data, 1)
	assert.Equal(t, "Short.", short.Data.([]core.Document)[0][record.KeyContent])
	assert.Len(t, short.Warnings, 1)

	// the length must be below the maximum
	assert.Len(t, catalog.Short(ctx, employee, record.TypeQuote, 1, 6, nil).Data, 0)
	assert.Len(t, catalog.Short(ctx, employee, record.TypeQuote, 1, 7, nil).Data, 1)

	assert.Equal(t, core.MalformedContent, catalog.Short(ctx, employee, record.TypeQuote, 1, 0, nil).Kind)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func TestDailyQuote(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	assert.Equal(t, core.NotFound, catalog.DailyQuote(ctx, employee).Kind)
	assert.Equal(t, core.PermissionDenied, catalog.DailyQuote(ctx, nil).Kind)

	for _, content := range []string{"One.", "Two.", "Three."} {
		idOf(t, catalog.Create(ctx, manager, record.TypeQuote, quote(content)))
	}

	var today = day(2025, time.March, 10)
	catalog.Now = func() time.Time { return today }

	first := catalog.DailyQuote(ctx, employee)
	var firstID = idOf(t, first)
	assert.Equal(t, "03/10/2025", first.Data.(core.Document)[record.KeyUsedDate])

	// same day, same quote
	assert.Equal(t, firstID, idOf(t, catalog.DailyQuote(ctx, employee)))

	// no quote repeats until all have been used
	var seen = map[string]bool{firstID: true}
	for i := 1; i < 3; i++ {
		today = day(2025, time.March, 10+i)
		var id = idOf(t, catalog.DailyQuote(ctx, employee))
		assert.False(t, seen[id], "quote %s repeated", id)
		seen[id] = true
	}
	assert.Len(t, seen, 3)

	// all used: the rotation starts over
	today = day(2025, time.March, 13)
	var id = idOf(t, catalog.DailyQuote(ctx, employee))

	quotes, err := db.Find(ctx, "quotes_public", nil, 0)
	require.NoError(t, err)
	for _, q := range quotes {
		if q[core.IDKey] == id {
			assert.Equal(t, "03/13/2025", q[record.KeyUsedDate])
		} else {
			assert.Equal(t, record.NeverUsed, q[record.KeyUsedDate])
		}
	}
}

func TestDailyQuoteResetsOnNewYear(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	for _, content := range []string{"One.", "Two.", "Three."} {
		idOf(t, catalog.Create(ctx, manager, record.TypeQuote, quote(content)))
	}

	var today = day(2024, time.December, 31)
	catalog.Now = func() time.Time { return today }
	idOf(t, catalog.DailyQuote(ctx, employee))

	today = day(2025, time.January, 1)
	idOf(t, catalog.DailyQuote(ctx, employee))

	used, err := db.Count(ctx, "quotes_public", core.Filter{record.KeyUsedDate: record.NeverUsed})
	require.NoError(t, err)
	assert.Equal(t, 2, used)
}

func TestAuthResult(t *testing.T) {
	tests := []struct {
		reason auth.Reason
		kind   core.Kind
	}{
		{auth.MissingToken, core.MissingToken},
		{auth.MalformedToken, core.InvalidToken},
		{auth.Unreachable, core.ServerConnectionError},
		{auth.MalformedResponse, core.MalformedAuthenticationResponse},
		{auth.Rejected, core.UnauthorizedToken},
	}
	for _, tt := range tests {
		var res = core.AuthResult(&auth.Failure{Reason: tt.reason})
		assert.False(t, res.Success)
		assert.Equal(t, tt.kind, res.Kind)
	}
	assert.Equal(t, core.UnauthorizedToken, core.AuthResult(assert.AnError).Kind)
}

func TestJokeWorkflow(t *testing.T) {
	var ctx = context.Background()
	var db = memdb.New()
	var catalog = newCatalog(db)

	proposed := catalog.Create(ctx, employee, record.TypeJoke, core.Document{
		record.KeyDifficulty: 1,
		record.KeyContent:    core.Document{"type": "one_liner", "text": "Why did the scarecrow win an award?"},
		record.KeyLanguage:   "english",
	})
	assert.Equal(t, core.PendingSuccess, proposed.Kind, proposed.Message)
	var pendingID = idOf(t, proposed)

	assert.Equal(t, 1, count(t, db, "jokes_private"))
	assert.Equal(t, 0, count(t, db, "jokes_public"))

	pending := catalog.ListPending(ctx, manager, record.TypeJoke, nil, 0)
	require.True(t, pending.Success)
	require.Len(t, pending.Data, 1)
	var doc = pending.Data.([]core.Document)[0]
	assert.Equal(t, false, doc[record.KeyIsEdit])
	assert.Equal(t, 1, doc[record.KeyLevel])

	approved := catalog.Approve(ctx, manager, record.TypeJoke, pendingID)
	var id = idOf(t, approved)

	assert.Equal(t, 0, count(t, db, "jokes_private"))
	assert.Equal(t, 1, count(t, db, "jokes_public"))

	published := catalog.Get(ctx, employee, record.TypeJoke, id)
	require.True(t, published.Success)
	doc = published.Data.(core.Document)
	assert.NotContains(t, doc, record.KeyIsEdit)
	assert.NotContains(t, doc, record.KeyRefID)
	assert.NotContains(t, doc, record.KeyDifficulty)
	assert.Equal(t, "english", doc[record.KeyLanguage])
}
