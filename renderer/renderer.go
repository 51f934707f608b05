// Package renderer builds the markdown views of the ledger: current
// balances, daily history, and the audit report.
package renderer

import (
	"bytes"
	"fmt"
	"sort"

	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"

	"github.com/satsledger/satsledger"
	"github.com/satsledger/satsledger/onchain"
)

// BalancesReport is the input of BalancesMarkdown.
type BalancesReport struct {
	Portfolio satsledger.Portfolio
	// Price is the current BTC price in the base asset; zero when no price
	// source is available.
	Price decimal.Decimal
}

// BalancesMarkdown renders the per-wallet, per-asset totals with their cost
// basis, and the portfolio value when a live price is known.
func BalancesMarkdown(r *BalancesReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("Balances")

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Wallet", "Asset", "Amount", "Cost Basis", "Lots"},
		Rows:   [][]string{},
	}

	total := decimal.Zero
	for _, wallet := range sortedWallets(r.Portfolio) {
		for _, asset := range sortedAssets(r.Portfolio[wallet]) {
			queue := r.Portfolio[wallet][asset]
			if queue.Len() == 0 {
				continue
			}
			spent := decimal.Zero
			for _, ref := range queue.Refs() {
				spent = spent.Add(ref.Spent())
			}
			table.Rows = append(table.Rows, []string{
				wallet,
				asset.Name,
				satsledger.FormatBTC(queue.Sum()),
				satsledger.FormatFiat(spent, satsledger.BaseAsset.Name),
				fmt.Sprintf("%d", queue.Len()),
			})
			if asset == satsledger.BTC {
				total = total.Add(queue.Sum())
			}
		}
	}
	doc.Table(table)

	if !r.Price.IsZero() {
		doc.PlainText(fmt.Sprintf("Total: %s BTC, worth %s at %s",
			satsledger.FormatBTC(total),
			satsledger.FormatFiat(total.Mul(r.Price), satsledger.BaseAsset.Name),
			satsledger.FormatFiat(r.Price, satsledger.BaseAsset.Name)))
	}
	return doc.String()
}

// HistoryMarkdown renders the daily history of the tracked asset.
func HistoryMarkdown(items []satsledger.HistoryItem) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1("History")

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"Date", "Total", "Of Which Interest", "Cost Basis"},
		Rows:   [][]string{},
	}
	for _, item := range items {
		table.Rows = append(table.Rows, []string{
			satsledger.DateOf(item.Date).String(),
			satsledger.FormatBTC(item.Total),
			satsledger.FormatBTC(item.Bonus),
			satsledger.FormatFiat(item.Spent, satsledger.BaseAsset.Name),
		})
	}
	doc.Table(table)
	return doc.String()
}

// AuditReport is the input of AuditMarkdown: the ledger-side audit plus the
// on-chain fetch report of the same run, when one happened.
type AuditReport struct {
	Audit   satsledger.AuditReport
	Onchain *onchain.Report
}

// AuditMarkdown renders the audit counters that make grouping discrepancies
// visible.
func AuditMarkdown(r *AuditReport) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)
	doc.H1(fmt.Sprintf("Audit for %s", r.Audit.Asset.Name))

	doc.BulletList(
		fmt.Sprintf("Total: %s", satsledger.FormatBTC(r.Audit.Total)),
		fmt.Sprintf("Cost basis: %s", satsledger.FormatFiat(r.Audit.Spent, satsledger.BaseAsset.Name)),
		fmt.Sprintf("Without acquisition rate: %s", satsledger.FormatBTC(r.Audit.WithoutRate)),
		fmt.Sprintf("Lots: %d (%d dust, %d without origin)", r.Audit.TotalRefs, r.Audit.DustRefs, r.Audit.MissingOrigins),
	)

	doc.H2("Per wallet")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
		Header:    []string{"Wallet", "Amount", "Lots"},
		Rows:      [][]string{},
	}
	for _, wallet := range r.Audit.PerWallet {
		table.Rows = append(table.Rows, []string{
			wallet.Wallet,
			satsledger.FormatBTC(wallet.Total),
			fmt.Sprintf("%d", wallet.Refs),
		})
	}
	doc.Table(table)

	if r.Onchain != nil {
		doc.H2("On-chain fetch")
		doc.BulletList(
			fmt.Sprintf("Transactions: %d", r.Onchain.Transactions),
			fmt.Sprintf("Ambiguous (need review): %d", r.Onchain.Ambiguous),
			fmt.Sprintf("Inputs with missing prior transaction: %d", r.Onchain.MissingVinTx),
			fmt.Sprintf("Skipped inputs/outputs: %d/%d", r.Onchain.SkippedVins, r.Onchain.SkippedVouts),
			fmt.Sprintf("Addresses that failed history lookup: %d", r.Onchain.FailedAddresses),
		)
	}
	return doc.String()
}

func sortedWallets(p satsledger.Portfolio) []string {
	wallets := make([]string, 0, len(p))
	for wallet := range p {
		wallets = append(wallets, wallet)
	}
	sort.Strings(wallets)
	return wallets
}

func sortedAssets(b satsledger.Balance) []satsledger.Asset {
	assets := make([]satsledger.Asset, 0, len(b))
	for asset := range b {
		assets = append(assets, asset)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	return assets
}
