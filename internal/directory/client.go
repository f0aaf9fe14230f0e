// Package directory provides the read-only LDAP lookup client for adfleet.
package directory

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"adfleet/internal/errors"
	"adfleet/internal/logging"
)

// Computer is a projected computer record
type Computer struct {
	Name        string // cn
	DNSHostName string // empty when the record has no reachable address
	OS          string
	OSVersion   string
	WhenCreated string
	WhenChanged string
	DN          string
}

// User is a projected user record
type User struct {
	CommonName        string
	Mail              string
	UserPrincipalName string
	SAMAccountName    string
	WhenCreated       string
	WhenChanged       string
	DN                string
}

// OU is a projected organizational unit record
type OU struct {
	Name string
	DN   string
}

// Options holds directory connection parameters
type Options struct {
	Server      string
	Port        int
	UseTLS      bool
	Domain      string // NETBIOS or DNS domain for NTLM bind
	Username    string
	Password    string
	BaseDN      string
	DialTimeout time.Duration
}

// Client is a read-only lookup client against one directory server.
// It is not safe for concurrent use; dispatch workers never touch it.
type Client struct {
	opts   Options
	conn   *ldap.Conn
	logger *logging.Logger
}

// NewClient creates a directory client. Connect must be called before any search.
func NewClient(opts Options, logger *logging.Logger) *Client {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	return &Client{opts: opts, logger: logger}
}

// URL returns the LDAP URL for the configured server.
func (c *Client) URL() string {
	scheme := "ldap"
	if c.opts.UseTLS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(c.opts.Server, fmt.Sprintf("%d", c.opts.Port)))
}

// Connect dials the directory server and binds with the session credentials.
func (c *Client) Connect() error {
	start := time.Now()

	dialOpts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: c.opts.DialTimeout}),
	}
	if c.opts.UseTLS {
		dialOpts = append(dialOpts, ldap.DialWithTLSConfig(&tls.Config{ServerName: c.opts.Server}))
	}

	conn, err := ldap.DialURL(c.URL(), dialOpts...)
	if err != nil {
		if c.logger != nil {
			c.logger.LogBindError(c.opts.Server, c.opts.Port, err)
		}
		return errors.NewConnectionError(fmt.Sprintf("failed to connect to directory %s", c.URL()), err)
	}
	conn.SetTimeout(30 * time.Second)

	if c.opts.Domain != "" {
		err = conn.NTLMBind(c.opts.Domain, c.opts.Username, c.opts.Password)
	} else {
		err = conn.Bind(c.opts.Username, c.opts.Password)
	}
	if err != nil {
		conn.Close()
		if c.logger != nil {
			c.logger.LogBindError(c.opts.Server, c.opts.Port, err)
		}
		return errors.NewAuthenticationError("directory bind failed", err)
	}

	c.conn = conn
	if c.logger != nil {
		c.logger.LogBind(c.opts.Server, c.opts.Port, c.opts.Username, time.Since(start))
	}
	return nil
}

// Close unbinds from the directory server
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// search runs one subtree search and returns the entries.
func (c *Client) search(base, filter string, attrs []string, timeLimit int) ([]*ldap.Entry, error) {
	if c.conn == nil {
		return nil, errors.NewSetupError("not connected to directory", nil)
	}

	start := time.Now()
	req := ldap.NewSearchRequest(
		base,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, timeLimit, false,
		filter,
		attrs,
		nil,
	)

	res, err := c.conn.Search(req)
	if err != nil {
		if c.logger != nil {
			c.logger.LogSearchError(base, filter, err)
		}
		return nil, errors.NewResolutionError(fmt.Sprintf("directory search failed under %s", base), err)
	}

	if c.logger != nil {
		c.logger.LogSearch(base, filter, len(res.Entries), time.Since(start))
	}
	return res.Entries, nil
}

// Users returns every user record under the base DN.
func (c *Client) Users() ([]User, error) {
	attrs := []string{"cn", "mail", "userPrincipalName", "sAMAccountName", "whenCreated", "whenChanged"}
	entries, err := c.search(c.opts.BaseDN, userFilter, attrs, 60)
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(entries))
	for _, e := range entries {
		users = append(users, User{
			CommonName:        e.GetAttributeValue("cn"),
			Mail:              e.GetAttributeValue("mail"),
			UserPrincipalName: e.GetAttributeValue("userPrincipalName"),
			SAMAccountName:    e.GetAttributeValue("sAMAccountName"),
			WhenCreated:       e.GetAttributeValue("whenCreated"),
			WhenChanged:       e.GetAttributeValue("whenChanged"),
			DN:                e.DN,
		})
	}
	return users, nil
}

// Computers returns every computer record under the base DN.
func (c *Client) Computers() ([]Computer, error) {
	entries, err := c.search(c.opts.BaseDN, computerFilter, computerAttrs(), 60)
	if err != nil {
		return nil, err
	}
	return projectComputers(entries), nil
}

// OrganizationalUnits lists OUs under the base DN.
func (c *Client) OrganizationalUnits() ([]OU, error) {
	entries, err := c.search(c.opts.BaseDN, organizationalUnitFilter, []string{"ou"}, 30)
	if err != nil {
		return nil, err
	}

	ous := make([]OU, 0, len(entries))
	for _, e := range entries {
		name := e.GetAttributeValue("ou")
		if name == "" {
			name = e.DN
		}
		ous = append(ous, OU{Name: name, DN: e.DN})
	}
	return ous, nil
}

// ComputersInOU returns the computer records under one container DN.
func (c *Client) ComputersInOU(ouDN string) ([]Computer, error) {
	entries, err := c.search(ouDN, computerFilter, computerAttrs(), 30)
	if err != nil {
		return nil, err
	}
	return projectComputers(entries), nil
}

// ComputersMatching returns computer records whose name or sAMAccountName
// matches expr. Wildcards in expr pass through to the directory.
func (c *Client) ComputersMatching(expr string) ([]Computer, error) {
	entries, err := c.search(c.opts.BaseDN, ComputerNameFilter(expr), computerAttrs(), 30)
	if err != nil {
		return nil, err
	}
	return projectComputers(entries), nil
}

// DomainControllers returns the computer records for domain controllers.
func (c *Client) DomainControllers() ([]Computer, error) {
	entries, err := c.search(c.opts.BaseDN, domainControllerFilter, computerAttrs(), 30)
	if err != nil {
		return nil, err
	}
	return projectComputers(entries), nil
}

// Probe checks reachability of another directory endpoint (used by the DC
// connectivity test). Returns nil when an anonymous connection succeeds.
func (c *Client) Probe(host string) error {
	scheme := "ldap"
	if c.opts.UseTLS {
		scheme = "ldaps"
	}
	url := fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, fmt.Sprintf("%d", c.opts.Port)))

	conn, err := ldap.DialURL(url, ldap.DialWithDialer(&net.Dialer{Timeout: c.opts.DialTimeout}))
	if err != nil {
		return errors.NewConnectionError(fmt.Sprintf("failed to connect to %s", url), err)
	}
	defer conn.Close()

	if err := conn.UnauthenticatedBind(""); err != nil {
		return errors.NewConnectionError(fmt.Sprintf("anonymous bind to %s rejected", url), err)
	}
	return nil
}

func computerAttrs() []string {
	return []string{"cn", "dNSHostName", "name", "sAMAccountName", "operatingSystem", "operatingSystemVersion", "whenCreated", "whenChanged"}
}

func projectComputers(entries []*ldap.Entry) []Computer {
	computers := make([]Computer, 0, len(entries))
	for _, e := range entries {
		name := e.GetAttributeValue("cn")
		if name == "" {
			name = e.GetAttributeValue("name")
		}
		computers = append(computers, Computer{
			Name:        name,
			DNSHostName: e.GetAttributeValue("dNSHostName"),
			OS:          e.GetAttributeValue("operatingSystem"),
			OSVersion:   e.GetAttributeValue("operatingSystemVersion"),
			WhenCreated: e.GetAttributeValue("whenCreated"),
			WhenChanged: e.GetAttributeValue("whenChanged"),
			DN:          e.DN,
		})
	}
	return computers
}
