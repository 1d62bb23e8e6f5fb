package monica

import (
	"bufio"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/NicholasRalph243/open-monica/bat"
	"github.com/NicholasRalph243/open-monica/monrsa"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialTimeout sets the maximum duration for establishing the connection.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

// WithRequestTimeout bounds each request/reply exchange.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.reqTimeout = d
	}
}

// WithEncryptedCredentials makes the client encrypt the credential fields of
// set, ack and shelve with the server's session public key, fetched once
// over the wire on first use.
func WithEncryptedCredentials() ClientOption {
	return func(c *Client) {
		c.encrypt = true
	}
}

// Credentials is a username/password pair for mutating commands.
type Credentials struct {
	Username string
	Password string
}

// PointQuery addresses one point at one instant for preceding/following.
type PointQuery struct {
	Time  bat.Time
	Point string
}

// SetRequest is one item of a set command.
type SetRequest struct {
	Point    string
	TypeCode string
	Value    string
}

// FlagRequest is one item of an ack or shelve command.
type FlagRequest struct {
	Point string
	Value bool
}

// Client speaks the ASCII monitor protocol over one TCP connection.
// Exchanges are serialised; a Client is safe for concurrent use.
type Client struct {
	mu          sync.Mutex
	conn        net.Conn
	r           *bufio.Reader
	w           *bufio.Writer
	dialTimeout time.Duration
	reqTimeout  time.Duration
	encrypt     bool
	key         *monrsa.Key
	closed      bool
}

// Dial connects to an ASCII monitor server.
func Dial(addr string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		dialTimeout: 10 * time.Second,
		reqTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, err := net.DialTimeout("tcp", addr, c.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	c.w = bufio.NewWriter(conn)
	return c, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// Exit sends the exit command, after which the server ends the connection.
func (c *Client) Exit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if err := c.sendLines(verbExit); err != nil {
		return err
	}
	c.closed = true
	return c.conn.Close()
}

// Names returns the server's point catalogue.
func (c *Client) Names() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(verbNames); err != nil {
		return nil, err
	}
	return c.readCounted()
}

// Poll returns one reply line per requested point, exactly as sent on the
// wire.
func (c *Client) Poll(names ...string) ([]string, error) {
	return c.pointList(verbPoll, names)
}

// Poll2 is Poll with units and in-range information.
func (c *Client) Poll2(names ...string) ([]string, error) {
	return c.pointList(verbPoll2, names)
}

// Details returns one description line per requested point.
func (c *Client) Details(names ...string) ([]string, error) {
	return c.pointList(verbDetails, names)
}

func (c *Client) pointList(verb string, names []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := append([]string{verb, strconv.Itoa(len(names))}, names...)
	if err := c.begin(lines...); err != nil {
		return nil, err
	}
	return c.readN(len(names))
}

// Since returns the samples of one point between the given time and now.
func (c *Client) Since(t bat.Time, point string, withAlarms bool) ([]string, error) {
	arg := t.String() + " " + point
	if withAlarms {
		arg += " alarms"
	}
	return c.counted(verbSince, arg)
}

// Between returns the samples of one point inside the given interval.
func (c *Client) Between(t1, t2 bat.Time, point string, withAlarms bool) ([]string, error) {
	arg := t1.String() + " " + t2.String() + " " + point
	if withAlarms {
		arg += " alarms"
	}
	return c.counted(verbBetween, arg)
}

// Preceding returns, per query, the nearest sample at or before the time.
func (c *Client) Preceding(queries []PointQuery) ([]string, error) {
	return c.nearest(verbPreceding, queries)
}

// Following returns, per query, the nearest sample at or after the time.
func (c *Client) Following(queries []PointQuery) ([]string, error) {
	return c.nearest(verbFollowing, queries)
}

func (c *Client) nearest(verb string, queries []PointQuery) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	lines := []string{verb, strconv.Itoa(len(queries))}
	for _, q := range queries {
		lines = append(lines, q.Time.String()+" "+q.Point)
	}
	if err := c.begin(lines...); err != nil {
		return nil, err
	}
	return c.readN(len(queries))
}

// Alarms returns the current priority alarms.
func (c *Client) Alarms() ([]string, error) {
	return c.counted(verbAlarms)
}

// AllAlarms returns every alarm known to the server.
func (c *Client) AllAlarms() ([]string, error) {
	return c.counted(verbAllAlarms)
}

// LeapSeconds returns the server's leap-second dictionary lines.
func (c *Client) LeapSeconds() ([]string, error) {
	return c.counted(verbLeapSeconds)
}

// SessionKey fetches the public exponent and modulus of the connection's
// session keypair.
func (c *Client) SessionKey() (e, n *big.Int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publicKey(verbRSA)
}

// PersistentKey fetches the public parameters of the server's long-lived
// key.
func (c *Client) PersistentKey() (e, n *big.Int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publicKey(verbRSAPersist)
}

// Set assigns values to points, returning one status line per item.
func (c *Client) Set(creds Credentials, items []SetRequest) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	user, pass, err := c.credentialLines(creds)
	if err != nil {
		return nil, err
	}
	lines := []string{verbSet, user, pass, strconv.Itoa(len(items))}
	for _, item := range items {
		lines = append(lines, item.Point+"\t"+item.TypeCode+"\t"+item.Value)
	}
	if err := c.begin(lines...); err != nil {
		return nil, err
	}
	return c.readN(len(items))
}

// Ack sets the acknowledged state of alarms, one status line per item.
func (c *Client) Ack(creds Credentials, items []FlagRequest) ([]string, error) {
	return c.alarmFlag(verbAck, creds, items)
}

// Shelve sets the shelved state of alarms, one status line per item.
func (c *Client) Shelve(creds Credentials, items []FlagRequest) ([]string, error) {
	return c.alarmFlag(verbShelve, creds, items)
}

func (c *Client) alarmFlag(verb string, creds Credentials, items []FlagRequest) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	user, pass, err := c.credentialLines(creds)
	if err != nil {
		return nil, err
	}
	lines := []string{verb, user, pass, strconv.Itoa(len(items))}
	for _, item := range items {
		lines = append(lines, item.Point+"\t"+strconv.FormatBool(item.Value))
	}
	if err := c.begin(lines...); err != nil {
		return nil, err
	}
	return c.readN(len(items))
}

// credentialLines prepares the username and password wire fields, encrypting
// them with the session public key when configured.
func (c *Client) credentialLines(creds Credentials) (string, string, error) {
	if !c.encrypt {
		return creds.Username, creds.Password, nil
	}
	if c.key == nil {
		e, n, err := c.publicKey(verbRSA)
		if err != nil {
			return "", "", fmt.Errorf("fetch session key: %w", err)
		}
		c.key = monrsa.NewPublic(e, n)
	}
	user, err := c.key.Encrypt(creds.Username)
	if err != nil {
		return "", "", fmt.Errorf("encrypt username: %w", err)
	}
	pass, err := c.key.Encrypt(creds.Password)
	if err != nil {
		return "", "", fmt.Errorf("encrypt password: %w", err)
	}
	return user, pass, nil
}

func (c *Client) counted(lines ...string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(lines...); err != nil {
		return nil, err
	}
	return c.readCounted()
}

func (c *Client) publicKey(verb string) (e, n *big.Int, err error) {
	if err := c.begin(verb); err != nil {
		return nil, nil, err
	}
	eLine, err := c.readLine()
	if err != nil {
		return nil, nil, err
	}
	nLine, err := c.readLine()
	if err != nil {
		return nil, nil, err
	}
	e, ok := new(big.Int).SetString(eLine, 10)
	if !ok {
		return nil, nil, fmt.Errorf("bad exponent line %q", eLine)
	}
	n, ok = new(big.Int).SetString(nLine, 10)
	if !ok {
		return nil, nil, fmt.Errorf("bad modulus line %q", nLine)
	}
	return e, n, nil
}

// begin starts one exchange: applies the request deadline and writes the
// request lines.
func (c *Client) begin(lines ...string) error {
	if c.closed {
		return ErrClientClosed
	}
	if c.reqTimeout > 0 {
		c.conn.SetDeadline(time.Now().Add(c.reqTimeout))
	}
	return c.sendLines(lines...)
}

func (c *Client) sendLines(lines ...string) error {
	for _, line := range lines {
		c.w.WriteString(line)
		c.w.WriteByte('\n')
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return nil
}

func (c *Client) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readCounted reads a count-prefixed reply block. A "?" line in place of the
// count is an inline protocol error.
func (c *Client) readCounted() ([]string, error) {
	head, err := c.readLine()
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(head, "?") {
		return nil, fmt.Errorf("%w: %s", ErrServerReject, head)
	}
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return nil, fmt.Errorf("bad reply count %q", head)
	}
	return c.readN(n)
}

func (c *Client) readN(n int) ([]string, error) {
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, err := c.readLine()
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}
