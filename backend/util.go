package backend

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wansing/buzz/core"
)

// maximum size of a request body
const maxBodySize = 1 << 20

type response struct {
	Status   string      `json:"status"`
	CodeTag  string      `json:"code_tag"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

func writeResult(w http.ResponseWriter, res core.Result) {

	var status = "failure"
	if res.Success {
		status = "success"
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(res.Kind.Status())
	json.NewEncoder(w).Encode(response{
		Status:   status,
		CodeTag:  string(res.Kind),
		Message:  res.Message,
		Data:     res.Data,
		Warnings: res.Warnings,
	})
}

// bearerToken reads "Authorization: Bearer <token>" or, as a fallback, a "Bearer" header.
func bearerToken(req *http.Request) string {
	if authorization := req.Header.Get("Authorization"); authorization != "" {
		if scheme, token, ok := strings.Cut(authorization, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(req.Header.Get("Bearer"))
}

// decodeBody reads a JSON object. Numbers are kept as json.Number.
func decodeBody(req *http.Request) (core.Document, *core.Result) {
	var doc core.Document
	var dec = json.NewDecoder(http.MaxBytesReader(nil, req.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil || doc == nil {
		var res = core.Fail(core.MalformedContent, "body must be a JSON object")
		return nil, &res
	}
	return doc, nil
}

// parseFilter turns query parameters into a filter, skipping the given parameters.
// Values "true" and "false" become booleans, integers become numbers.
func parseFilter(query url.Values, skip ...string) core.Filter {
	var filter = core.Filter{}
outer:
	for key, values := range query {
		for _, s := range skip {
			if key == s {
				continue outer
			}
		}
		if len(values) == 0 {
			continue
		}
		var value = values[0]
		switch {
		case value == "true":
			filter[key] = true
		case value == "false":
			filter[key] = false
		default:
			if i, err := strconv.ParseInt(value, 10, 64); err == nil {
				filter[key] = i
			} else {
				filter[key] = value
			}
		}
	}
	return filter
}

// intParam returns def if the parameter is absent, and ok = false if it is not an integer.
func intParam(query url.Values, key string, def int) (int, bool) {
	var s = query.Get(key)
	if s == "" {
		return def, true
	}
	i, err := strconv.Atoi(s)
	return i, err == nil
}
