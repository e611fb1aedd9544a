// Package feds describes the conversations held with federation and
// global-ban bots: what is sent, which replies count, and how they read.
package feds

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
)

const (
	KindFedStat  fanout.Kind = "fstat"
	KindFed      fanout.Kind = "fed"
	KindGbanBots fanout.Kind = "gban-bots"
	KindGban     fanout.Kind = "gban"
	KindLookup   fanout.Kind = "lookup"
	KindFedAdmin fanout.Kind = "fed-admin"
)

const fileButton = "make the fedban file"

var (
	checking = regexp.MustCompile(`(?i)\bchecking\b`)

	fbanReply    = regexp.MustCompile(`(?i)(new fedban|start(ing)? a federation ban|fedban reason update|fedban reason updated|would you like to update this reason)`)
	unfbanReply  = regexp.MustCompile(`(?i)(new un-fedban|i'll give|un-fedban)`)
	reasonPrompt = regexp.MustCompile(`(?i)would you like to update this reason`)
	userIDField  = regexp.MustCompile(`(?i)\buser[ _]?id\W{0,3}(\d+)`)
)

func Command(name string, user int64, reason string) string {
	cmd := fmt.Sprintf("/%s %d", strings.TrimPrefix(name, "/"), user)
	if reason = strings.TrimSpace(reason); reason != "" {
		cmd += " " + reason
	}
	return cmd
}

// FedStatScript waits past "checking..." replies and, when the bot offers
// a ban list file instead of text, asks for the file.
func FedStatScript(timeout time.Duration) fanout.Script {
	return fanout.Script{
		Timeout:     timeout,
		Placeholder: checking,
		Prompts: []fanout.Prompt{{
			Match:     offersFile,
			AwaitFile: true,
		}},
	}
}

func offersFile(m fanout.Message) bool {
	for _, b := range m.Buttons {
		if strings.Contains(strings.ToLower(b.Text), fileButton) {
			return true
		}
	}
	return false
}

// about reports whether a reply concerns user. Replies that carry a user id
// field must carry this one; replies without the field are taken as is.
func about(text string, user int64) bool {
	fields := userIDField.FindAllStringSubmatch(text, -1)
	if len(fields) == 0 {
		return true
	}
	want := strconv.FormatInt(user, 10)
	for _, f := range fields {
		if f[1] == want {
			return true
		}
	}
	return false
}

// FbanScript only counts replies announcing the ban of user. A bot that
// already has the user banned asks whether to update the reason; that gets
// a yes.
func FbanScript(timeout time.Duration, user int64) fanout.Script {
	return fanout.Script{
		Timeout: timeout,
		Match: func(m fanout.Message) bool {
			return fbanReply.MatchString(m.Text) && about(m.Text, user)
		},
		Prompts: []fanout.Prompt{{
			Match:  func(m fanout.Message) bool { return reasonPrompt.MatchString(m.Text) },
			Button: "Update reason",
		}},
	}
}

func UnfbanScript(timeout time.Duration, user int64) fanout.Script {
	return fanout.Script{
		Timeout: timeout,
		Match: func(m fanout.Message) bool {
			return unfbanReply.MatchString(m.Text) && about(m.Text, user)
		},
	}
}

// GbanBotScript posts into gban log chats, which never answer.
func GbanBotScript(timeout time.Duration) fanout.Script {
	return fanout.Script{Timeout: timeout, NoReply: true}
}

func LookupScript(timeout time.Duration) fanout.Script {
	return fanout.Script{Timeout: timeout, Placeholder: checking}
}

// FedAdminScript takes Rose's first answer to a promote or demote.
// Promotions are confirmed by the promoted user, so nothing is clicked.
func FedAdminScript(timeout time.Duration) fanout.Script {
	return fanout.Script{Timeout: timeout, Placeholder: checking}
}
