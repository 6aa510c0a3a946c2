package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wansing/buzz/auth"
	"github.com/wansing/buzz/record"
	"github.com/wansing/buzz/util"
	"go.uber.org/zap"
)

// Catalog runs every operation as validate, authorize, execute, normalize. The credential is a parameter of each call.
type Catalog struct {
	DB       DocumentDB
	Policies auth.Policies
	Log      *zap.Logger
	Now      func() time.Time // optional
}

func NewCatalog(db DocumentDB, policies auth.Policies, log *zap.Logger) *Catalog {
	return &Catalog{
		DB:       db,
		Policies: policies,
		Log:      log,
	}
}

func (c *Catalog) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Collection returns the adapter of the published or pending collection of a record type.
func (c *Catalog) Collection(t record.Type, published bool) *Collection {
	return &Collection{
		DB:   c.DB,
		Name: auth.Collection(t, published),
		Type: t,
		Log:  c.Log,
	}
}

func (c *Catalog) authorize(cred *auth.Credential, action auth.Action, collection string) *Result {

	var err = auth.Authorize(cred, action, c.Policies.Table(collection))
	if err == nil {
		return nil
	}

	var res Result
	if errors.Is(err, auth.ErrNoCredential) {
		res = Fail(PermissionDenied, "no credential")
	} else {
		res = Fail(PermissionDenied, fmt.Sprintf("%s may not %s %s", cred.Title, action, collection))
		c.Log.Info("permission denied", zap.String("user", cred.ID), zap.String("name", cred.Name()), zap.String("action", string(action)), zap.String("collection", collection))
	}
	return &res
}

// validate sanitizes the payload and builds the entity.
func (c *Catalog) validate(t record.Type, payload Document) (record.Entity, *Result) {

	if len(payload) == 0 {
		var res = Fail(MalformedContent, "record is empty")
		return nil, &res
	}

	entity, err := record.FromCanonical(t, util.SanitizeMap(payload))
	if err != nil {
		var res Result
		var validationErr *record.ValidationError
		if errors.As(err, &validationErr) {
			res = Fail(InvalidRecord, validationErr.Error())
		} else {
			res = Fail(MalformedContent, err.Error())
		}
		return nil, &res
	}
	return entity, nil
}

func checkFilter(filter Filter) *Result {
	_, res := CheckFilter(filter)
	return res
}

func (c *Catalog) List(ctx context.Context, cred *auth.Credential, t record.Type, filter Filter, limit int) Result {
	if res := checkFilter(filter); res != nil {
		return *res
	}
	if res := c.authorize(cred, auth.Read, auth.Collection(t, true)); res != nil {
		return *res
	}
	return c.Collection(t, true).GetByFields(ctx, filter, limit)
}

// ListPending returns proposals and edit proposals.
func (c *Catalog) ListPending(ctx context.Context, cred *auth.Credential, t record.Type, filter Filter, limit int) Result {
	if res := checkFilter(filter); res != nil {
		return *res
	}
	if res := c.authorize(cred, auth.Read, auth.Collection(t, false)); res != nil {
		return *res
	}
	return c.Collection(t, false).GetByFields(ctx, filter, limit)
}

func (c *Catalog) Get(ctx context.Context, cred *auth.Credential, t record.Type, id string) Result {
	id, bad := checkID(id)
	if bad != nil {
		return *bad
	}
	if res := c.authorize(cred, auth.Read, auth.Collection(t, true)); res != nil {
		return *res
	}
	return c.Collection(t, true).GetByKey(ctx, id)
}

func (c *Catalog) Random(ctx context.Context, cred *auth.Credential, t record.Type, n int, filter Filter) Result {
	if res := checkFilter(filter); res != nil {
		return *res
	}
	if res := c.authorize(cred, auth.Read, auth.Collection(t, true)); res != nil {
		return *res
	}
	return c.Collection(t, true).GetRandom(ctx, n, filter)
}

func (c *Catalog) Short(ctx context.Context, cred *auth.Credential, t record.Type, n, maxLen int, filter Filter) Result {
	if res := checkFilter(filter); res != nil {
		return *res
	}
	if res := c.authorize(cred, auth.Read, auth.Collection(t, true)); res != nil {
		return *res
	}
	return c.Collection(t, true).GetShort(ctx, n, maxLen, filter)
}

// Count returns the number of published records which match the filter.
func (c *Catalog) Count(ctx context.Context, cred *auth.Credential, t record.Type, filter Filter) Result {
	if res := checkFilter(filter); res != nil {
		return *res
	}
	if res := c.authorize(cred, auth.Read, auth.Collection(t, true)); res != nil {
		return *res
	}
	return c.Collection(t, true).Count(ctx, filter)
}

// Delete removes a published record.
func (c *Catalog) Delete(ctx context.Context, cred *auth.Credential, t record.Type, id string) Result {
	id, bad := checkID(id)
	if bad != nil {
		return *bad
	}
	if res := c.authorize(cred, auth.Delete, auth.Collection(t, true)); res != nil {
		return *res
	}
	var res = c.Collection(t, true).DeleteByKey(ctx, id)
	if res.Success {
		c.Log.Info("deleted record", zap.String("user", cred.ID), zap.String("type", string(t)), zap.String("id", id))
	}
	return res
}

// DeleteWhere removes all published records which match a filter of exactly one field.
func (c *Catalog) DeleteWhere(ctx context.Context, cred *auth.Credential, t record.Type, filter Filter) Result {
	if len(filter) != 1 {
		return Fail(MalformedContent, "delete filter must have exactly one field")
	}
	if res := checkFilter(filter); res != nil {
		return *res
	}
	if res := c.authorize(cred, auth.Delete, auth.Collection(t, true)); res != nil {
		return *res
	}
	var res = c.Collection(t, true).DeleteByFilter(ctx, filter)
	if res.Success {
		c.Log.Info("deleted records", zap.String("user", cred.ID), zap.String("type", string(t)), zap.Any("filter", filter))
	}
	return res
}

// DailyQuote returns the quote of the day. Picking it may write used dates back to the published quotes.
func (c *Catalog) DailyQuote(ctx context.Context, cred *auth.Credential) Result {

	var collection = c.Collection(record.TypeQuote, true)
	if res := c.authorize(cred, auth.Read, collection.Name); res != nil {
		return *res
	}

	quotes, res := collection.find(ctx, nil, 0)
	if !res.Success {
		return res
	}

	var today = c.now()
	plan, err := PlanDaily(quotes, today)
	if err != nil {
		return Fail(NotFound, "no quotes available")
	}

	if plan.Reset {
		if res := collection.UpdateAll(ctx, nil, Document{record.KeyUsedDate: record.NeverUsed}); !res.Success {
			return res
		}
		c.Log.Info("reset quote rotation", zap.Int("quotes", len(quotes)))
	}

	var quote = Copy(plan.Quote)
	if plan.Mark {
		var todayStr = record.FormatDate(today)
		id, _ := quote[IDKey].(string)
		if res := collection.UpdateByKey(ctx, id, Document{record.KeyUsedDate: todayStr}); !res.Success {
			return res
		}
		quote[record.KeyUsedDate] = todayStr
		c.Log.Info("picked quote of the day", zap.String("id", id), zap.String("date", todayStr))
	}

	return Ok(GeneralSuccess, Expose(quote))
}

// AuthResult translates an error of an auth.Authenticator into a failed result.
func AuthResult(err error) Result {
	var failure *auth.Failure
	if !errors.As(err, &failure) {
		return Fail(UnauthorizedToken, "")
	}
	switch failure.Reason {
	case auth.MissingToken:
		return Fail(MissingToken, "")
	case auth.MalformedToken:
		return Fail(InvalidToken, "")
	case auth.Unreachable:
		return Fail(ServerConnectionError, "")
	case auth.MalformedResponse:
		return Fail(MalformedAuthenticationResponse, "")
	default:
		return Fail(UnauthorizedToken, "")
	}
}
