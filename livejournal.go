package main

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/lit"
	"github.com/kolo/xmlrpc"
	"github.com/pkg/errors"
)

// Layout of eventtime in getevents replies, in the journal's local time
const eventTimeLayout = "2006-01-02 15:04:05"

type liveJournal struct {
	rpc      *xmlrpc.Client
	username string
	password string
}

func newLiveJournal(server, username, password string) (*liveJournal, error) {
	rpc, err := xmlrpc.NewClient(server, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "creating xmlrpc client for %s", server)
	}

	return &liveJournal{rpc: rpc, username: username, password: password}, nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// computeAuthParams answers a server challenge without sending the password
func computeAuthParams(challenge, password string) challengeAuth {
	return challengeAuth{
		Challenge: challenge,
		Response:  md5Hex(challenge + md5Hex(password)),
	}
}

func (a challengeAuth) params() map[string]interface{} {
	return map[string]interface{}{
		"ver":            1,
		"auth_method":    "challenge",
		"auth_challenge": a.Challenge,
		"auth_response":  a.Response,
	}
}

// baseParams asks for a new challenge; every authenticated call needs its own
func (lj *liveJournal) baseParams() (map[string]interface{}, error) {
	var reply map[string]interface{}
	if err := lj.rpc.Call("LJ.XMLRPC.getchallenge", nil, &reply); err != nil {
		return nil, errors.Wrap(err, "getchallenge")
	}

	challenge, ok := reply["challenge"].(string)
	if !ok || challenge == "" {
		return nil, errors.New("getchallenge: reply has no challenge")
	}

	params := computeAuthParams(challenge, lj.password).params()
	params["username"] = lj.username
	return params, nil
}

// mostRecentUpdate returns the time of the newest post on the journal, or the
// zero time if there are none
func (lj *liveJournal) mostRecentUpdate() (time.Time, error) {
	params, err := lj.baseParams()
	if err != nil {
		return time.Time{}, err
	}
	params["selecttype"] = "lastn"
	params["howmany"] = 1

	var reply map[string]interface{}
	if err = lj.rpc.Call("LJ.XMLRPC.getevents", params, &reply); err != nil {
		return time.Time{}, errors.Wrap(err, "getevents")
	}

	events, _ := reply["events"].([]interface{})
	if len(events) == 0 {
		lit.Debug("Journal of %s has no posts", lj.username)
		return time.Time{}, nil
	}

	event, _ := events[0].(map[string]interface{})
	eventTime, _ := event["eventtime"].(string)
	t, err := time.ParseInLocation(eventTimeLayout, eventTime, time.Local)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "getevents: bad eventtime %q", eventTime)
	}

	lit.Debug("Most recent post of %s is from %s", lj.username, t)
	return t, nil
}

func (lj *liveJournal) post(e entry) error {
	params, err := lj.baseParams()
	if err != nil {
		return err
	}

	t := e.Time.In(time.Local)
	params["subject"] = e.Subject
	params["event"] = e.Body
	params["lineendings"] = "unix"
	params["year"] = t.Year()
	params["mon"] = int(t.Month())
	params["day"] = t.Day()
	params["hour"] = t.Hour()
	params["min"] = t.Minute()
	params["props"] = map[string]interface{}{
		"opt_backdated":    e.Backdated,
		"opt_preformatted": true,
	}

	var reply map[string]interface{}
	if err = lj.rpc.Call("LJ.XMLRPC.postevent", params, &reply); err != nil {
		return errors.Wrapf(err, "postevent %q", e.Subject)
	}

	lit.Debug("Posted %q as %v", e.Subject, reply["url"])
	return nil
}
