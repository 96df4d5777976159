package upstream

import (
	"context"
	"fmt"

	"github.com/marmos91/ussdgw/pkg/session"
	"github.com/marmos91/ussdgw/pkg/upstream/codec"
)

// GetCustomer looks up the customer record for msisdn, cached for 5 minutes
// per MSISDN.
func (c *Client) GetCustomer(ctx context.Context, msisdn string, access *session.Access) codec.Envelope {
	data := fmt.Sprintf("MOBILENUMBER:%s:", msisdn)
	return c.Call(ctx, "GETCUSTOMER", data, access, "customer_"+msisdn, false)
}

// Login verifies pin for customerID, uncached since a stale hit would let a
// stale authentication result through.
func (c *Client) Login(ctx context.Context, customerID, msisdn, pin string, access *session.Access) codec.Envelope {
	data := fmt.Sprintf("LOGINMPIN:%s:CUSTOMERID:%s:", pin, customerID)
	return c.Call(ctx, "LOGIN", data, access, "", false)
}

// Balance queries the balance for account, uncached.
func (c *Client) Balance(ctx context.Context, account, customerID, msisdn string, access *session.Access) codec.Envelope {
	data := fmt.Sprintf("MERCHANTID:BALANCE:BANKACCOUNTID:%s:CUSTOMERID:%s:MOBILENUMBER:%s:", account, customerID, msisdn)
	return c.Call(ctx, "B-", data, access, "", false)
}

// MiniStatement fetches the recent-transaction mini statement for account,
// uncached.
func (c *Client) MiniStatement(ctx context.Context, account, customerID, msisdn string, access *session.Access) codec.Envelope {
	data := fmt.Sprintf("MERCHANTID:MINISTATEMENT:BANKACCOUNTID:%s:CUSTOMERID:%s:MOBILENUMBER:%s:", account, customerID, msisdn)
	return c.Call(ctx, "B-", data, access, "", false)
}

// AirtimePurchase debits bankAccountID for amount and tops up mobileNumber
// with airtime from merchantID, uncached.
func (c *Client) AirtimePurchase(ctx context.Context, merchantID, bankAccountID, mobileNumber, amount, pin string, access *session.Access) codec.Envelope {
	data := fmt.Sprintf("ACTION:PAYBILL:MERCHANTID:%s:BANKACCOUNTID:%s:MOBILENUMBER:%s:AMOUNT:%s:TRXMPIN:%s:", merchantID, bankAccountID, mobileNumber, amount, pin)
	return c.Call(ctx, "AIRTIME", data, access, "", false)
}
