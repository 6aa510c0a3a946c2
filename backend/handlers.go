package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/buzz/auth"
	"github.com/wansing/buzz/core"
	"github.com/wansing/buzz/record"
)

const (
	defaultSample = 1
	defaultMaxLen = 80
)

func (b *Backend) list(req *http.Request, t record.Type, _ httprouter.Params) core.Result {
	var query = req.URL.Query()
	limit, ok := intParam(query, "limit", 0)
	if !ok {
		return core.Fail(core.MalformedContent, "limit must be an integer")
	}
	return b.Catalog.List(req.Context(), auth.FromContext(req.Context()), t, parseFilter(query, "limit"), limit)
}

func (b *Backend) listPending(req *http.Request, t record.Type, _ httprouter.Params) core.Result {
	var query = req.URL.Query()
	limit, ok := intParam(query, "limit", 0)
	if !ok {
		return core.Fail(core.MalformedContent, "limit must be an integer")
	}
	return b.Catalog.ListPending(req.Context(), auth.FromContext(req.Context()), t, parseFilter(query, "limit"), limit)
}

func (b *Backend) create(req *http.Request, t record.Type, _ httprouter.Params) core.Result {
	payload, res := decodeBody(req)
	if res != nil {
		return *res
	}
	return b.Catalog.Create(req.Context(), auth.FromContext(req.Context()), t, payload)
}

func (b *Backend) deleteWhere(req *http.Request, t record.Type, _ httprouter.Params) core.Result {
	return b.Catalog.DeleteWhere(req.Context(), auth.FromContext(req.Context()), t, parseFilter(req.URL.Query()))
}

func (b *Backend) random(req *http.Request, t record.Type, _ httprouter.Params) core.Result {
	var query = req.URL.Query()
	n, ok := intParam(query, "n", defaultSample)
	if !ok {
		return core.Fail(core.MalformedContent, "n must be an integer")
	}
	return b.Catalog.Random(req.Context(), auth.FromContext(req.Context()), t, n, parseFilter(query, "n"))
}

func (b *Backend) short(req *http.Request, t record.Type, _ httprouter.Params) core.Result {
	var query = req.URL.Query()
	n, ok := intParam(query, "n", defaultSample)
	if !ok {
		return core.Fail(core.MalformedContent, "n must be an integer")
	}
	maxLen, ok := intParam(query, "max", defaultMaxLen)
	if !ok {
		return core.Fail(core.MalformedContent, "max must be an integer")
	}
	return b.Catalog.Short(req.Context(), auth.FromContext(req.Context()), t, n, maxLen, parseFilter(query, "n", "max"))
}

func (b *Backend) count(req *http.Request, t record.Type, _ httprouter.Params) core.Result {
	return b.Catalog.Count(req.Context(), auth.FromContext(req.Context()), t, parseFilter(req.URL.Query()))
}

func (b *Backend) get(req *http.Request, t record.Type, params httprouter.Params) core.Result {
	return b.Catalog.Get(req.Context(), auth.FromContext(req.Context()), t, params.ByName("id"))
}

func (b *Backend) update(req *http.Request, t record.Type, params httprouter.Params) core.Result {
	payload, res := decodeBody(req)
	if res != nil {
		return *res
	}
	return b.Catalog.Update(req.Context(), auth.FromContext(req.Context()), t, params.ByName("id"), payload)
}

func (b *Backend) del(req *http.Request, t record.Type, params httprouter.Params) core.Result {
	return b.Catalog.Delete(req.Context(), auth.FromContext(req.Context()), t, params.ByName("id"))
}

func (b *Backend) approve(req *http.Request, t record.Type, params httprouter.Params) core.Result {
	return b.Catalog.Approve(req.Context(), auth.FromContext(req.Context()), t, params.ByName("id"))
}

func (b *Backend) deny(req *http.Request, t record.Type, params httprouter.Params) core.Result {
	return b.Catalog.Deny(req.Context(), auth.FromContext(req.Context()), t, params.ByName("id"))
}

func (b *Backend) daily(req *http.Request, _ record.Type, _ httprouter.Params) core.Result {
	return b.Catalog.DailyQuote(req.Context(), auth.FromContext(req.Context()))
}
