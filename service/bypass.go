package service

// AuthContext carries the caller's privilege into the recorder. A privileged
// submission skips every duplicate check.
type AuthContext struct {
	Privileged bool
}

// Anonymous is the context of an ordinary voter.
var Anonymous = AuthContext{}

func (a AuthContext) skipsValidation() bool {
	return a.Privileged
}
