package notify

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"

	"github.com/phrazzld/taskman-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smtpSession is what the fake relay saw during one connection.
type smtpSession struct {
	mailFrom string
	rcptTo   []string
	data     string
}

// startFakeSMTP serves a single SMTP session on a loopback port. rcptReply
// overrides the reply to RCPT TO when set.
func startFakeSMTP(t *testing.T, rcptReply string) (int, <-chan smtpSession) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	sessions := make(chan smtpSession, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		var sess smtpSession
		defer func() { sessions <- sess }()

		r := bufio.NewReader(conn)
		reply := func(line string) {
			_, _ = conn.Write([]byte(line + "\r\n"))
		}

		reply("220 localhost ESMTP test")
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
			switch verb {
			case "EHLO":
				reply("250-localhost")
				reply("250 8BITMIME")
			case "HELO", "NOOP", "RSET":
				reply("250 OK")
			case "MAIL":
				sess.mailFrom = line
				reply("250 OK")
			case "RCPT":
				sess.rcptTo = append(sess.rcptTo, line)
				if rcptReply != "" {
					reply(rcptReply)
					continue
				}
				reply("250 OK")
			case "DATA":
				reply("354 end data with <CR><LF>.<CR><LF>")
				var b strings.Builder
				for {
					dl, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if dl == ".\r\n" {
						break
					}
					b.WriteString(dl)
				}
				sess.data = b.String()
				reply("250 OK queued")
			case "QUIT":
				reply("221 bye")
				return
			default:
				reply("502 not implemented")
			}
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, sessions
}

func smtpConfig(port int) config.NotifyConfig {
	return config.NotifyConfig{
		Provider:     ProviderSMTP,
		From:         "no-reply@example.com",
		SMTPHost:     "127.0.0.1",
		SMTPPort:     port,
		SMTPInsecure: true,
	}
}

func TestSMTPChannel_Send(t *testing.T) {
	port, sessions := startFakeSMTP(t, "")
	ch, err := NewSMTPChannel(smtpConfig(port), nil)
	require.NoError(t, err)

	err = ch.Send(context.Background(), "ada@example.com", "Task status updated: Ship", "<p>done</p>")
	require.NoError(t, err)

	sess := <-sessions
	assert.Contains(t, sess.mailFrom, "<no-reply@example.com>")
	require.Len(t, sess.rcptTo, 1)
	assert.Contains(t, sess.rcptTo[0], "<ada@example.com>")

	assert.Regexp(t, `(?m)^From: .*no-reply@example\.com`, sess.data)
	assert.Regexp(t, `(?m)^To: .*ada@example\.com`, sess.data)
	assert.Contains(t, sess.data, "Subject: Task status updated: Ship")
	assert.Contains(t, sess.data, "Content-Type: text/html")
	assert.Contains(t, sess.data, "<p>done</p>")
}

func TestSMTPChannel_RejectedRecipient(t *testing.T) {
	port, sessions := startFakeSMTP(t, "550 5.1.1 mailbox unavailable")
	ch, err := NewSMTPChannel(smtpConfig(port), nil)
	require.NoError(t, err)

	err = ch.Send(context.Background(), "ada@example.com", "Hello", "<p>hi</p>")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	<-sessions
}

func TestSMTPChannel_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	ch, err := NewSMTPChannel(smtpConfig(port), nil)
	require.NoError(t, err)

	err = ch.Send(context.Background(), "ada@example.com", "Hello", "<p>hi</p>")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSMTPChannel_InvalidAddresses(t *testing.T) {
	ch, err := NewSMTPChannel(smtpConfig(2525), nil)
	require.NoError(t, err)

	err = ch.Send(context.Background(), "not an address", "Hello", "<p>hi</p>")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.False(t, strings.Contains(err.Error(), ErrTransport.Error()))

	cfg := smtpConfig(2525)
	cfg.From = "also not an address"
	ch, err = NewSMTPChannel(cfg, nil)
	require.NoError(t, err)
	err = ch.Send(context.Background(), "ada@example.com", "Hello", "<p>hi</p>")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	assert.ErrorIs(t, ch.Send(context.Background(), "", "Hello", "<p>hi</p>"), ErrInvalidRecipient)
}
