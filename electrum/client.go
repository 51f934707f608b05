package electrum

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Public Electrum servers throttle aggressive clients; stay well under their
// limits.
const defaultRequestsPerSecond = 5

const defaultCallTimeout = 30 * time.Second

// Client is an Electrum JSON-RPC client over a single TCP connection. Calls
// are serialized; batches of requests go out as one JSON array and come back
// as one array, matched by request id.
type Client struct {
	addr    string
	log     *zap.Logger
	limiter *rate.Limiter
	timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	r      *bufio.Reader
	nextID uint64
}

// Dial connects to an Electrum server at addr (host:port).
func Dial(ctx context.Context, addr string, log *zap.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to electrum server %s: %w", addr, err)
	}
	return &Client{
		addr:    addr,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		timeout: defaultCallTimeout,
		conn:    conn,
		r:       bufio.NewReaderSize(conn, 1<<20),
	}, nil
}

// Close terminates the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// RPCError is a JSON-RPC error returned by the server for one request.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("electrum rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call sends a batch of requests and returns the responses indexed by
// request id. Transport failures poison the connection, which is closed so
// the next call fails fast instead of reading a desynchronized stream.
func (c *Client) call(ctx context.Context, requests []request) (map[uint64]response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	payload, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("could not encode electrum batch: %w", err)
	}
	payload = append(payload, '\n')

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	if _, err := c.conn.Write(payload); err != nil {
		c.conn.Close()
		return nil, fmt.Errorf("electrum %s: write failed: %w", c.addr, err)
	}
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		c.conn.Close()
		return nil, fmt.Errorf("electrum %s: read failed: %w", c.addr, err)
	}

	var responses []response
	if err := json.Unmarshal(line, &responses); err != nil {
		return nil, fmt.Errorf("electrum %s: malformed batch response: %w", c.addr, err)
	}
	byID := make(map[uint64]response, len(responses))
	for _, res := range responses {
		byID[res.ID] = res
	}
	return byID, nil
}

func (c *Client) newBatch(method string, paramsList [][]any) []request {
	c.mu.Lock()
	defer c.mu.Unlock()
	requests := make([]request, len(paramsList))
	for i, params := range paramsList {
		c.nextID++
		requests[i] = request{JSONRPC: "2.0", ID: c.nextID, Method: method, Params: params}
	}
	return requests
}

// ScripthashHistory returns the transaction history of one script hash.
func (c *Client) ScripthashHistory(ctx context.Context, scripthash string) ([]HistoryItem, error) {
	requests := c.newBatch("blockchain.scripthash.get_history", [][]any{{scripthash}})
	responses, err := c.call(ctx, requests)
	if err != nil {
		return nil, err
	}
	res, ok := responses[requests[0].ID]
	if !ok {
		return nil, fmt.Errorf("electrum %s: no response for history request", c.addr)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	var items []HistoryItem
	if err := json.Unmarshal(res.Result, &items); err != nil {
		return nil, fmt.Errorf("electrum %s: malformed history result: %w", c.addr, err)
	}
	return items, nil
}

// Transactions fetches the verbose form of the given transactions in one
// batch. Per-transaction failures are logged and skipped, the remaining
// transactions are still returned; only transport-level failures abort the
// whole batch.
func (c *Client) Transactions(ctx context.Context, txids []string) ([]Transaction, error) {
	if len(txids) == 0 {
		return nil, nil
	}
	paramsList := make([][]any, len(txids))
	for i, txid := range txids {
		paramsList[i] = []any{txid, true}
	}
	requests := c.newBatch("blockchain.transaction.get", paramsList)
	responses, err := c.call(ctx, requests)
	if err != nil {
		return nil, err
	}

	transactions := make([]Transaction, 0, len(txids))
	for i, req := range requests {
		res, ok := responses[req.ID]
		if !ok {
			c.log.Warn("no response for transaction", zap.String("txid", txids[i]))
			continue
		}
		if res.Error != nil {
			c.log.Warn("transaction request failed", zap.String("txid", txids[i]), zap.Error(res.Error))
			continue
		}
		var tx Transaction
		if err := json.Unmarshal(res.Result, &tx); err != nil {
			c.log.Warn("malformed transaction result", zap.String("txid", txids[i]), zap.Error(err))
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}
