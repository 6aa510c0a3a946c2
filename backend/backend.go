package backend

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/wansing/buzz/auth"
	"github.com/wansing/buzz/core"
	"github.com/wansing/buzz/record"
	"github.com/wansing/buzz/util"
	"go.uber.org/zap"
)

type Backend struct {
	Catalog *core.Catalog
	Auth    auth.Authenticator
	Log     *zap.Logger
}

// handler gets the credential from the request context, see auth.FromContext.
type handler func(req *http.Request, t record.Type, params httprouter.Params) core.Result

// middleware authenticates the request, runs f and writes its result. Handlers never write themselves.
func (b *Backend) middleware(t record.Type, f handler) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var start = time.Now()
		var requestID = uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		var res core.Result
		var userID string

		cred, err := b.Auth.Authenticate(req.Context(), bearerToken(req))
		if err == nil {
			userID = cred.ID
			res = f(req.WithContext(auth.NewContext(req.Context(), cred)), t, params)
		} else {
			res = core.AuthResult(err)
		}

		writeResult(w, res)

		b.Log.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", res.Kind.Status()),
			zap.String("kind", string(res.Kind)),
			zap.Duration("duration", time.Since(start)),
			zap.String("user", userID),
			zap.String("client_ip", req.RemoteAddr),
			zap.String("user_agent", util.Trunc(req.UserAgent(), 120)))
	}
}

func NewRouter(b *Backend) http.Handler {

	var router = httprouter.New()

	for _, t := range record.Types {
		var base = "/" + string(t)
		router.GET(base, b.middleware(t, b.list))
		router.POST(base, b.middleware(t, b.create))
		router.DELETE(base, b.middleware(t, b.deleteWhere))
		router.GET(base+"/random", b.middleware(t, b.random))
		router.GET(base+"/short", b.middleware(t, b.short))
		router.GET(base+"/count", b.middleware(t, b.count))
		router.GET(base+"/record/:id", b.middleware(t, b.get))
		router.PUT(base+"/record/:id", b.middleware(t, b.update))
		router.DELETE(base+"/record/:id", b.middleware(t, b.del))
		router.GET(base+"/pending", b.middleware(t, b.listPending))
		router.POST(base+"/pending/:id/approve", b.middleware(t, b.approve))
		router.POST(base+"/pending/:id/deny", b.middleware(t, b.deny))
	}

	router.GET("/quotes/daily", b.middleware(record.TypeQuote, b.daily))

	// public
	router.GET("/healthz", func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		writeResult(w, core.Ok(core.GeneralSuccess, nil))
	})

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeResult(w, core.Fail(core.NotFound, "no such route"))
	})

	router.PanicHandler = func(w http.ResponseWriter, req *http.Request, v interface{}) {
		b.Log.Error("panic", zap.String("path", req.URL.Path), zap.Any("error", v), zap.Stack("stack"))
		writeResult(w, core.Fail(core.StorageFailure, "internal error"))
	}

	return router
}
