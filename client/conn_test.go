package client_test

import (
	"net"
	"testing"
	"time"

	"github.com/dirsync/ldapclient"
	"github.com/dirsync/ldapclient/client"
	"github.com/stretchr/testify/require"
)

func TestDialAndSimpleBindSuccess(t *testing.T) {
	srv := newFakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		msg := readRequest(t, conn)
		require.NotNil(t, msg)
		require.Equal(t, ldapclient.TypeBindRequestOp, msg.ProtocolOp.Type)
		req, err := ldapclient.GetBindRequest(msg.ProtocolOp.Data)
		require.NoError(t, err)
		require.Equal(t, "cn=admin,dc=example,dc=com", req.Name)
		require.Equal(t, "secret", req.Credentials)

		res := &ldapclient.BindResult{Result: ldapclient.Result{ResultCode: ldapclient.ResultSuccess}}
		writeResponse(t, conn, msg.MessageID, ldapclient.TypeBindResponseOp, res.Encode())
	})

	conn, err := client.Dial("tcp", srv.addr())
	require.NoError(t, err)
	defer conn.Close()
	require.Equal(t, client.StateConnected, conn.State())

	res, err := conn.Bind(&ldapclient.BindRequest{
		Version:     3,
		Name:        "cn=admin,dc=example,dc=com",
		AuthType:    ldapclient.AuthenticationTypeSimple,
		Credentials: "secret",
	})
	require.NoError(t, err)
	require.True(t, res.Ok())
}

func TestDialConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = client.Dial("tcp", addr)
	require.Error(t, err)
	var lr *client.LDAPResult
	require.ErrorAs(t, err, &lr)
	require.Equal(t, ldapclient.ResultConnectError, lr.ResultCode)
}

func TestInvalidCredentialsResult(t *testing.T) {
	srv := newFakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		msg := readRequest(t, conn)
		require.NotNil(t, msg)
		res := &ldapclient.BindResult{Result: ldapclient.Result{
			ResultCode:        ldapclient.LDAPResultInvalidCredentials,
			DiagnosticMessage: "bad password",
		}}
		writeResponse(t, conn, msg.MessageID, ldapclient.TypeBindResponseOp, res.Encode())
	})

	conn, err := client.Dial("tcp", srv.addr())
	require.NoError(t, err)
	defer conn.Close()

	res, err := conn.Bind(&ldapclient.BindRequest{
		Version: 3, Name: "cn=admin,dc=example,dc=com",
		AuthType: ldapclient.AuthenticationTypeSimple, Credentials: "wrong",
	})
	require.NoError(t, err)
	require.False(t, res.Ok())
	require.Equal(t, ldapclient.LDAPResultInvalidCredentials, res.ResultCode)
}

func TestCloseFailsPendingRequests(t *testing.T) {
	blockServer := make(chan struct{})
	srv := newFakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		readRequest(t, conn)
		<-blockServer
	})
	defer close(blockServer)

	conn, err := client.Dial("tcp", srv.addr())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := conn.Send(&ldapclient.DelRequest{DN: "cn=gone,dc=example,dc=com"})
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		require.Error(t, err)
		var lr *client.LDAPResult
		require.ErrorAs(t, err, &lr)
		require.Equal(t, ldapclient.ResultServerDown, lr.ResultCode)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not resolve after Close")
	}
}

func TestSendRejectsInvalidRequest(t *testing.T) {
	srv := newFakeServer(t, func(t *testing.T, conn net.Conn) {})
	conn, err := client.Dial("tcp", srv.addr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Send(&ldapclient.DelRequest{DN: ""})
	require.Error(t, err)
	var lr *client.LDAPResult
	require.ErrorAs(t, err, &lr)
	require.Equal(t, ldapclient.ResultLocalError, lr.ResultCode)
}

func TestSendOnClosedConnectionIsLocalError(t *testing.T) {
	srv := newFakeServer(t, func(t *testing.T, conn net.Conn) { conn.Close() })
	conn, err := client.Dial("tcp", srv.addr())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, err = conn.Send(&ldapclient.DelRequest{DN: "cn=x,dc=example,dc=com"})
	require.Error(t, err)
	var lr *client.LDAPResult
	require.ErrorAs(t, err, &lr)
	require.Equal(t, ldapclient.ResultLocalError, lr.ResultCode)
}

func TestAbandonIsIdempotent(t *testing.T) {
	requestsSeen := make(chan ldapclient.BerType, 4)
	srv := newFakeServer(t, func(t *testing.T, conn net.Conn) {
		defer conn.Close()
		for {
			msg := readRequest(t, conn)
			if msg == nil {
				return
			}
			requestsSeen <- msg.ProtocolOp.Type
			if msg.ProtocolOp.Type == ldapclient.TypeUnbindRequestOp {
				return
			}
		}
	})

	conn, err := client.Dial("tcp", srv.addr())
	require.NoError(t, err)
	defer conn.Close()

	handle, err := conn.Send(&ldapclient.SearchRequest{BaseObject: "dc=example,dc=com"})
	require.NoError(t, err)
	sh := handle.(*client.SearchHandle)
	require.Equal(t, ldapclient.TypeSearchRequestOp, <-requestsSeen)

	require.NoError(t, conn.Abandon(1))
	require.Equal(t, ldapclient.TypeAbandonRequestOp, <-requestsSeen)
	require.NoError(t, conn.Abandon(1))

	result := sh.Done()
	require.False(t, result.Ok())
	require.Equal(t, ldapclient.ResultCanceled, result.ResultCode)
}
