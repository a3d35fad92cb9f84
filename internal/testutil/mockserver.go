// Package testutil provides an in-process mock of the Exchange Stream
// server for integration-style tests: a real TLS listener speaking the
// same CRLF-JSON framing as the live service, so the transport/session/
// supervisor layers can be exercised without reaching across the network.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/betfair-go/stream/internal/codec"
)

// GenerateSelfSignedCert creates an ephemeral TLS certificate for
// "localhost", good enough to exercise a real TLS handshake in tests
// without touching the filesystem.
func GenerateSelfSignedCert() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("testutil: generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("testutil: generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("testutil: create certificate: %w", err)
	}

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, nil
}

// MockServer is a TLS listener that speaks the stream wire protocol.
type MockServer struct {
	Listener net.Listener
	Addr     string
	cert     tls.Certificate
}

// NewMockServer binds an ephemeral TLS listener on 127.0.0.1.
func NewMockServer() (*MockServer, error) {
	cert, err := GenerateSelfSignedCert()
	if err != nil {
		return nil, err
	}
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		return nil, fmt.Errorf("testutil: listen: %w", err)
	}
	return &MockServer{Listener: ln, Addr: ln.Addr().String(), cert: cert}, nil
}

// RootCAs returns a pool containing the server's self-signed certificate,
// for dialing clients that need to verify it.
func (m *MockServer) RootCAs() (*x509.CertPool, error) {
	leaf, err := x509.ParseCertificate(m.cert.Certificate[0])
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return pool, nil
}

// Close shuts the listener down.
func (m *MockServer) Close() error { return m.Listener.Close() }

// Accept blocks for the next client connection and wraps it for scripted
// handshake/message exchanges.
func (m *MockServer) Accept() (*ClientConn, error) {
	conn, err := m.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &ClientConn{
		conn: conn,
		dec:  codec.NewDecoder(conn),
	}, nil
}

// ClientConn is one accepted client connection, playing the server side
// of the handshake/subscription protocol.
type ClientConn struct {
	conn net.Conn
	dec  *codec.Decoder
}

// Close closes the underlying connection.
func (c *ClientConn) Close() error { return c.conn.Close() }

// WriteFrame marshals v and writes it as a CRLF-terminated frame. Response
// fixtures are arbitrary (often anonymous) structs, so this writes
// directly rather than going through codec.Encoder, which only accepts
// the four outgoing request message types.
func (c *ClientConn) WriteFrame(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\r', '\n')
	_, err = c.conn.Write(data)
	return err
}

// ReadFrame reads and JSON-decodes the next raw frame into v.
func (c *ClientConn) ReadFrame(v any) error {
	line, err := c.dec.Decode()
	if err != nil {
		return err
	}
	return json.Unmarshal(line, v)
}

// ServeHandshake plays the connection/authentication/status sequence,
// succeeding or failing the login depending on succeed.
func (c *ClientConn) ServeHandshake(succeed bool) error {
	if err := c.WriteFrame(struct {
		Operation    string `json:"op"`
		ConnectionID string `json:"connectionId"`
	}{Operation: "connection", ConnectionID: "conn_id_fake123"}); err != nil {
		return err
	}

	var auth struct {
		Operation string `json:"op"`
	}
	if err := c.ReadFrame(&auth); err != nil {
		return err
	}

	if succeed {
		return c.WriteFrame(struct {
			Operation            string `json:"op"`
			StatusCode           string `json:"statusCode"`
			ConnectionID         string `json:"connectionId"`
			ConnectionsAvailable int    `json:"connectionsAvailable"`
		}{Operation: "status", StatusCode: "SUCCESS", ConnectionID: "conn_id_fake123", ConnectionsAvailable: 42})
	}
	return c.WriteFrame(struct {
		Operation  string `json:"op"`
		StatusCode string `json:"statusCode"`
		ErrorCode  string `json:"errorCode"`
	}{Operation: "status", StatusCode: "FAILURE", ErrorCode: "INVALID_SESSION_INFORMATION"})
}
