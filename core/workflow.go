package core

import (
	"context"

	"github.com/wansing/buzz/auth"
	"github.com/wansing/buzz/record"
	"go.uber.org/zap"
)

// Records move from a proposal in the pending collection to the published collection:
//
//	Propose:     employee   -> pending (is_edit false)
//	Publish:     manager    -> published
//	ProposeEdit: employee   -> pending (is_edit true, original_id)
//	DirectUpdate: manager   -> published
//	Approve:     pending    -> published, then delete pending
//	Deny:        delete pending

// Create publishes the record if the credential belongs to a manager, else it proposes it.
func (c *Catalog) Create(ctx context.Context, cred *auth.Credential, t record.Type, payload Document) Result {
	if cred.IsManager() {
		return c.Publish(ctx, cred, t, payload)
	}
	return c.Propose(ctx, cred, t, payload)
}

// Update updates the published record if the credential belongs to a manager, else it proposes an edit.
func (c *Catalog) Update(ctx context.Context, cred *auth.Credential, t record.Type, id string, payload Document) Result {
	if cred.IsManager() {
		return c.DirectUpdate(ctx, cred, t, id, payload)
	}
	return c.ProposeEdit(ctx, cred, t, id, payload)
}

// Propose writes the record into the pending collection.
func (c *Catalog) Propose(ctx context.Context, cred *auth.Credential, t record.Type, payload Document) Result {

	entity, res := c.validate(t, payload)
	if res != nil {
		return *res
	}

	var base = entity.Base()
	base.ClearEdit()
	base.SetID("")
	base.SetIsEdit(false) // does not fail without a reference id

	var pending = c.Collection(t, false)
	if res := c.authorize(cred, auth.Create, pending.Name); res != nil {
		return *res
	}

	created := pending.Create(ctx, entity.Canonical())
	if !created.Success {
		return created
	}

	c.Log.Info("proposed record", zap.String("user", cred.ID), zap.String("type", string(t)), zap.Any("id", created.Data))
	return Ok(PendingSuccess, created.Data)
}

// Publish writes the record into the published collection, skipping the pending stage.
func (c *Catalog) Publish(ctx context.Context, cred *auth.Credential, t record.Type, payload Document) Result {

	entity, res := c.validate(t, payload)
	if res != nil {
		return *res
	}

	var base = entity.Base()
	base.ClearEdit()
	base.SetID("")

	var published = c.Collection(t, true)
	if res := c.authorize(cred, auth.Create, published.Name); res != nil {
		return *res
	}

	created := published.Create(ctx, entity.Canonical())
	if created.Success {
		c.Log.Info("published record", zap.String("user", cred.ID), zap.String("type", string(t)), zap.Any("id", created.Data))
	}
	return created
}

// ProposeEdit writes an edit proposal for the published record with the given id into the pending collection.
func (c *Catalog) ProposeEdit(ctx context.Context, cred *auth.Credential, t record.Type, id string, payload Document) Result {

	id, bad := checkID(id)
	if bad != nil {
		return *bad
	}

	entity, res := c.validate(t, payload)
	if res != nil {
		return *res
	}

	var base = entity.Base()
	base.SetID("")
	if err := base.MarkEdit(id); err != nil {
		return Fail(InvalidRecord, err.Error())
	}

	var pending = c.Collection(t, false)
	var published = c.Collection(t, true)
	if res := c.authorize(cred, auth.Create, pending.Name); res != nil {
		return *res
	}
	if res := c.authorize(cred, auth.Read, published.Name); res != nil {
		return *res
	}

	if _, res := published.get(ctx, id); !res.Success {
		return res
	}

	created := pending.Create(ctx, entity.Canonical())
	if !created.Success {
		return created
	}

	c.Log.Info("proposed edit", zap.String("user", cred.ID), zap.String("type", string(t)), zap.String("original_id", id), zap.Any("id", created.Data))
	return Ok(PendingSuccess, created.Data)
}

// DirectUpdate overwrites the fields of a published record with those of the payload.
func (c *Catalog) DirectUpdate(ctx context.Context, cred *auth.Credential, t record.Type, id string, payload Document) Result {

	id, bad := checkID(id)
	if bad != nil {
		return *bad
	}

	entity, res := c.validate(t, payload)
	if res != nil {
		return *res
	}

	var base = entity.Base()
	base.ClearEdit()
	base.SetID("")

	var published = c.Collection(t, true)
	if res := c.authorize(cred, auth.Update, published.Name); res != nil {
		return *res
	}

	updated := published.UpdateByKey(ctx, id, entity.Canonical())
	if updated.Success {
		c.Log.Info("updated record", zap.String("user", cred.ID), zap.String("type", string(t)), zap.String("id", id))
	}
	return updated
}

// Approve publishes a pending record and then deletes it from the pending collection.
// If publishing fails, the pending record is kept, so Approve can be retried. Approving it again after success yields NotFound.
func (c *Catalog) Approve(ctx context.Context, cred *auth.Credential, t record.Type, pendingID string) Result {

	pendingID, bad := checkID(pendingID)
	if bad != nil {
		return *bad
	}

	var pending = c.Collection(t, false)
	var published = c.Collection(t, true)

	for _, check := range []struct {
		action     auth.Action
		collection string
	}{
		{auth.Read, pending.Name},
		{auth.Delete, pending.Name},
		{auth.Create, published.Name},
		{auth.Update, published.Name},
	} {
		if res := c.authorize(cred, check.action, check.collection); res != nil {
			return *res
		}
	}

	doc, res := pending.get(ctx, pendingID)
	if !res.Success {
		return res
	}

	entity, err := record.FromCanonical(t, Expose(doc))
	if err != nil {
		c.Log.Warn("pending record is invalid", zap.String("collection", pending.Name), zap.String("id", pendingID), zap.Error(err))
		return Fail(InvalidRecord, err.Error())
	}

	var base = entity.Base()
	isEdit, _ := base.IsEdit()
	var refID = base.RefID()
	base.ClearEdit()
	base.SetID("")
	if err := entity.Validate(); err != nil {
		return Fail(InvalidRecord, err.Error())
	}

	var publishedID string
	if isEdit {
		res = published.UpdateByKey(ctx, refID, entity.Canonical())
		publishedID = refID
	} else {
		res = published.Create(ctx, entity.Canonical())
		if data, ok := res.Data.(Document); ok {
			publishedID, _ = data[record.KeyID].(string)
		}
	}
	if !res.Success {
		c.Log.Warn("approve: publishing failed, keeping pending record", zap.String("collection", pending.Name), zap.String("id", pendingID), zap.String("kind", string(res.Kind)))
		return res
	}

	if res := pending.DeleteByKey(ctx, pendingID); !res.Success {
		c.Log.Error("approve: published, but could not delete pending record", zap.String("collection", pending.Name), zap.String("id", pendingID), zap.String("kind", string(res.Kind)))
		return res
	}

	c.Log.Info("approved record", zap.String("user", cred.ID), zap.String("type", string(t)), zap.String("pending_id", pendingID), zap.String("id", publishedID), zap.Bool("edit", isEdit))
	return Ok(GeneralSuccess, Document{record.KeyID: publishedID})
}

// Deny deletes a pending record. The published collection is not touched.
func (c *Catalog) Deny(ctx context.Context, cred *auth.Credential, t record.Type, pendingID string) Result {

	pendingID, bad := checkID(pendingID)
	if bad != nil {
		return *bad
	}

	var pending = c.Collection(t, false)
	if res := c.authorize(cred, auth.Delete, pending.Name); res != nil {
		return *res
	}

	denied := pending.DeleteByKey(ctx, pendingID)
	if denied.Success {
		c.Log.Info("denied record", zap.String("user", cred.ID), zap.String("type", string(t)), zap.String("id", pendingID))
	}
	return denied
}
