package handler

type ContextKey string

var (
	PrincipalCtxKey  ContextKey = "principal"
	SessionIDCtxKey  ContextKey = "sessionID"
	SubmissionCtxKey ContextKey = "submission"
)
