// Copyright (C) 2019-2021 Algorand, Inc.
// This file is part of go-muse
//
// go-muse is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-muse is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-muse.  If not, see <https://www.gnu.org/licenses/>.

package apply

import (
	"github.com/algorand/go-muse/data/basics"
	"github.com/algorand/go-muse/data/transactions"
	"github.com/algorand/go-muse/ledger/chainstate"
	"github.com/algorand/go-muse/ledger/ledgercore"
	"github.com/algorand/go-muse/protocol"
)

// LimitOrderCreate places an order selling AmountToSell for at least
// MinToReceive and matches it against the book.
func LimitOrderCreate(st *chainstate.State, op *transactions.LimitOrderCreateOp) error {
	return placeOrder(st, protocol.LimitOrderCreateOp, op.Owner, op.OrderID, op.AmountToSell, op.Price(), op.FillOrKill, op.Expiration)
}

// LimitOrderCreate2 places an order at an explicit exchange rate.
func LimitOrderCreate2(st *chainstate.State, op *transactions.LimitOrderCreate2Op) error {
	return placeOrder(st, protocol.LimitOrderCreate2Op, op.Owner, op.OrderID, op.AmountToSell, op.ExchangeRate, op.FillOrKill, op.Expiration)
}

func placeOrder(st *chainstate.State, t protocol.OpType, owner basics.AccountName, id uint32, sell basics.Asset, price basics.Price, fillOrKill bool, expiration basics.Timestamp) error {
	acct, err := st.Account(t, owner)
	if err != nil {
		return err
	}
	now := st.HeadBlockTime()
	maxExpiration := now.Add(st.Params.MaxLimitOrderExpiration)
	if expiration == 0 {
		expiration = maxExpiration
	}
	if expiration <= now {
		return ledgercore.Assertf(t, "limit order has to expire after head block time")
	}
	if expiration > maxExpiration {
		return ledgercore.Assertf(t, "limit order expiration %v is more than %d seconds away", expiration, st.Params.MaxLimitOrderExpiration)
	}
	for _, sym := range []basics.Symbol{price.Base.Symbol, price.Quote.Symbol} {
		if err := requireAsset(st, t, sym); err != nil {
			return err
		}
	}
	if acct.AssetBalance(sell.Symbol) < sell.Amount {
		return ledgercore.Assertf(t, "account %s does not have sufficient funds for limit order", owner)
	}
	key := ledgercore.OwnedKey{Owner: owner, ID: id}
	if st.Orders.Has(key) {
		return ledgercore.Assertf(t, "order %d of %s already exists", id, owner)
	}
	if err := st.AdjustBalance(owner, sell.Neg()); err != nil {
		return err
	}
	order := ledgercore.LimitOrder{
		Seller:     owner,
		OrderID:    id,
		Created:    now,
		Expiration: expiration,
		ForSale:    sell.Amount,
		SellPrice:  price,
	}
	if err := st.Orders.Create(key, order); err != nil {
		return err
	}
	filled, err := ApplyOrder(st, key)
	if err != nil {
		return err
	}
	if fillOrKill && !filled {
		return ledgercore.Assertf(t, "cancelling order because it was not filled")
	}
	return nil
}

// ApplyOrder matches the order at key against the opposite book, best
// price first, while the prices cross. It reports whether the order was
// filled completely (or culled as too small to receive anything).
func ApplyOrder(st *chainstate.State, key ledgercore.OwnedKey) (bool, error) {
	order, ok := st.Orders.Get(key)
	if !ok {
		return true, nil
	}
	limit := order.SellPrice.Invert()
	bound := ledgercore.LimitOrder{SellPrice: basics.MaxPrice(limit.Base.Symbol, limit.Quote.Symbol)}
	for {
		cur, ok := st.Orders.Get(key)
		if !ok {
			return true, nil
		}
		_, best, ok := st.OrdersByPrice.LowerBound(bound)
		if !ok || best.SellPrice.Base.Symbol != limit.Base.Symbol || best.SellPrice.Quote.Symbol != limit.Quote.Symbol ||
			best.SellPrice.Less(limit) {
			return false, nil
		}
		res, err := match(st, cur, best, best.SellPrice)
		if err != nil {
			return false, err
		}
		if res&1 != 0 {
			return !st.Orders.Has(key), nil
		}
	}
}

// match trades newOrder against the resting oldOrder at matchPrice. The
// side whose amount for sale runs out fixes the trade size. Bit 0 of the
// result is set when newOrder is gone, bit 1 when oldOrder is.
func match(st *chainstate.State, newOrder, oldOrder ledgercore.LimitOrder, matchPrice basics.Price) (int, error) {
	newForSale := newOrder.AmountForSale()
	oldForSale := oldOrder.AmountForSale()

	oldForSaleValue, err := matchPrice.Mul(oldForSale)
	if err != nil {
		return 0, err
	}
	var newReceives, oldReceives basics.Asset
	if newForSale.Amount <= oldForSaleValue.Amount {
		oldReceives = newForSale
		newReceives, err = matchPrice.Mul(newForSale)
	} else {
		newReceives = oldForSale
		oldReceives, err = matchPrice.Mul(oldForSale)
	}
	if err != nil {
		return 0, err
	}
	oldPays := newReceives
	newPays := oldReceives

	result := 0
	done, err := fillOrder(st, newOrder, newPays, newReceives)
	if err != nil {
		return 0, err
	}
	if done {
		result |= 1
	}
	done, err = fillOrder(st, oldOrder, oldPays, oldReceives)
	if err != nil {
		return 0, err
	}
	if done {
		result |= 2
	}
	if result == 0 {
		return 0, ledgercore.Assertf(protocol.UnknownOp, "order match %v/%v filled neither order", newOrder.Key(), oldOrder.Key())
	}
	return result, nil
}

// fillOrder credits the seller and reduces or removes the order. A
// remainder too small to buy anything is refunded.
func fillOrder(st *chainstate.State, order ledgercore.LimitOrder, pays, receives basics.Asset) (bool, error) {
	if pays.Symbol != order.SellPrice.Base.Symbol || pays.Symbol == receives.Symbol {
		return false, ledgercore.Assertf(protocol.UnknownOp, "fill of order %v pays %v for %v", order.Key(), pays, receives)
	}
	if err := st.AdjustBalance(order.Seller, receives); err != nil {
		return false, err
	}
	key := order.Key()
	if pays.Amount == order.ForSale {
		st.Orders.Remove(key)
		return true, nil
	}
	err := st.Orders.Modify(key, func(o *ledgercore.LimitOrder) error {
		o.ForSale -= pays.Amount
		return nil
	})
	if err != nil {
		return false, err
	}
	order, _ = st.Orders.Get(key)
	if order.AmountToReceive().Amount == 0 {
		return true, CancelOrder(st, order)
	}
	return false, nil
}

// CancelOrder removes an order and refunds what is left for sale.
func CancelOrder(st *chainstate.State, order ledgercore.LimitOrder) error {
	if err := st.AdjustBalance(order.Seller, order.AmountForSale()); err != nil {
		return err
	}
	st.Orders.Remove(order.Key())
	return nil
}

// LimitOrderCancel cancels one of the owner's orders.
func LimitOrderCancel(st *chainstate.State, op *transactions.LimitOrderCancelOp) error {
	order, ok := st.Orders.Get(ledgercore.OwnedKey{Owner: op.Owner, ID: op.OrderID})
	if !ok {
		return ledgercore.Assertf(protocol.LimitOrderCancelOp, "order %d of %s does not exist", op.OrderID, op.Owner)
	}
	return CancelOrder(st, order)
}

// ClearExpiredOrders cancels every order that expired by now.
func ClearExpiredOrders(st *chainstate.State) error {
	now := st.HeadBlockTime()
	var expired []ledgercore.LimitOrder
	st.OrdersByExpiration.Scan(func(_ ledgercore.OwnedKey, o ledgercore.LimitOrder) bool {
		if o.Expiration > now {
			return false
		}
		expired = append(expired, o)
		return true
	})
	for _, o := range expired {
		if err := CancelOrder(st, o); err != nil {
			return err
		}
	}
	return nil
}

// AssetCreate registers a user-issued asset with a fixed maximum supply.
func AssetCreate(st *chainstate.State, op *transactions.AssetCreateOp) error {
	t := protocol.AssetCreateOp
	if err := st.RequireAccount(t, op.Issuer); err != nil {
		return err
	}
	if op.Symbol.IsCore() {
		return ledgercore.Assertf(t, "symbol %s is reserved", op.Symbol)
	}
	if st.Assets.Has(op.Symbol) {
		return ledgercore.Assertf(t, "asset %s already exists", op.Symbol)
	}
	return st.Assets.Create(op.Symbol, ledgercore.AssetObject{
		Symbol:      op.Symbol,
		Issuer:      op.Issuer,
		MaxSupply:   op.MaxSupply,
		Description: op.Description,
		Created:     st.HeadBlockTime(),
	})
}

// AssetIssue mints new units of an asset to an account. Only the issuer
// may issue, and never beyond the maximum supply.
func AssetIssue(st *chainstate.State, op *transactions.AssetIssueOp) error {
	t := protocol.AssetIssueOp
	a, ok := st.Assets.Get(op.AssetToIssue.Symbol)
	if !ok {
		return ledgercore.Assertf(t, "asset %s does not exist", op.AssetToIssue.Symbol)
	}
	if a.Issuer != op.Issuer {
		return ledgercore.Assertf(t, "%s is not the issuer of %s", op.Issuer, a.Symbol)
	}
	if err := st.RequireAccount(t, op.IssueToAccount); err != nil {
		return err
	}
	supply, overflowed := basics.OAddS(a.CurrentSupply, op.AssetToIssue.Amount)
	if overflowed || supply > a.MaxSupply {
		return ledgercore.Assertf(t, "issuing %v would exceed the maximum supply of %d", op.AssetToIssue, a.MaxSupply)
	}
	if err := st.AdjustBalance(op.IssueToAccount, op.AssetToIssue); err != nil {
		return err
	}
	st.AdjustSupply(op.AssetToIssue)
	return nil
}
