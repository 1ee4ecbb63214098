// klingpayw is a command-line Klingpay wallet: it manages encrypted
// wallet files, derives addresses, and builds, signs and submits
// transactions through a Klingpay node's JSON-RPC endpoint.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/Klingon-tech/klingpay-wallet/config"
	"github.com/Klingon-tech/klingpay-wallet/internal/cache"
	"github.com/Klingon-tech/klingpay-wallet/internal/chainclient"
	"github.com/Klingon-tech/klingpay-wallet/internal/engine"
	"github.com/Klingon-tech/klingpay-wallet/internal/keyring"
	"github.com/Klingon-tech/klingpay-wallet/internal/keystore"
	"github.com/Klingon-tech/klingpay-wallet/internal/log"
	"github.com/Klingon-tech/klingpay-wallet/internal/session"
	"github.com/Klingon-tech/klingpay-wallet/pkg/crypto"
	"github.com/Klingon-tech/klingpay-wallet/pkg/tx"
	"github.com/Klingon-tech/klingpay-wallet/pkg/types"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := ""
	dataDir := ""
	network := "mainnet"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	cfg := config.Default(config.NetworkType(network))
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	// Config file overrides defaults, flags override the file.
	values, err := config.LoadFile(cfg.ConfigFile())
	if err != nil {
		fatal("load config: %v", err)
	}
	if err := config.ApplyFileConfig(cfg, values); err != nil {
		fatal("apply config: %v", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if rpcURL != "" {
		cfg.Node.Endpoint = rpcURL
	}
	if err := config.Validate(cfg); err != nil {
		fatal("invalid config: %v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "wallet":
		cmdWallet(cfg, cmdArgs)
	case "address":
		cmdAddress(cfg, cmdArgs)
	case "balance":
		cmdBalance(cfg, cmdArgs)
	case "utxos":
		cmdUTXOs(cfg, cmdArgs)
	case "send":
		cmdSend(cfg, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klingpayw [global flags] <command> [flags]

Global flags:
  --rpc <url>         Node RPC endpoint (default: http://127.0.0.1:8545)
  --datadir <path>    Data directory (default: ~/.klingpay)
  --network <net>     mainnet (default) or testnet

Commands:
  wallet create --name <n>        Create a new wallet
  wallet import --name <n> --mnemonic "..."
                                  Import wallet from mnemonic
  wallet list                     List wallets
  wallet delete --name <n>        Delete a wallet file

  address --wallet <w>            Show wallet addresses
  address --wallet <w> --new      Derive the next external address
  balance --wallet <w>            Show wallet balance
  utxos --wallet <w>              List spendable outputs
  send --wallet <w> --to <addr> --amount <n>
       [--assets id=amt,...] [--metadata <json>] [--fee <n>]
                                  Send a transaction
`)
}

// walletNetwork maps config network names onto the address discriminant.
func walletNetwork(cfg *config.Config) types.Network {
	if cfg.Network == config.Testnet {
		return types.Testnet
	}
	return types.Mainnet
}

// feeParams returns the protocol fee schedule with any config overrides.
func feeParams(cfg *config.Config) tx.FeeParams {
	params := tx.DefaultFeeParams()
	if cfg.Fees.Base > 0 {
		params.Base = cfg.Fees.Base
	}
	if cfg.Fees.PerByte > 0 {
		params.PerByte = cfg.Fees.PerByte
	}
	if cfg.Fees.MinBaseValue > 0 {
		params.MinBaseValue = cfg.Fees.MinBaseValue
	}
	if config.FeeOverridesApplied(cfg) && cfg.Network == config.Mainnet {
		fmt.Fprintln(os.Stderr, "Warning: fee overrides active on mainnet; built transactions may be rejected.")
	}
	return params
}

// openSession unlocks a wallet and wires the full pipeline: keyring,
// engine, node client and (when enabled) the query cache. The returned
// cleanup must run before exit.
func openSession(cfg *config.Config, walletName string) (*session.Session, func(), error) {
	ks, err := keystore.New(cfg.KeystoreDir())
	if err != nil {
		return nil, nil, fmt.Errorf("open keystore: %w", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		return nil, nil, fmt.Errorf("read password: %w", err)
	}
	seed, err := ks.Load(walletName, password)
	crypto.Zero(password)
	if err != nil {
		return nil, nil, err
	}

	keys := keyring.NewManager(walletNetwork(cfg))
	err = keys.InitializeFromSeed(seed)
	crypto.Zero(seed)
	if err != nil {
		return nil, nil, err
	}
	if _, err := keys.CreateAccount(0, "Default"); err != nil {
		keys.ClearSensitiveData()
		return nil, nil, err
	}

	client := chainclient.NewWithTimeout(cfg.Node.Endpoint, cfg.Node.Timeout)
	var source engine.ChainSource = client
	cleanup := func() { keys.ClearSensitiveData() }

	if cfg.Cache.Enabled {
		cached, err := cache.Open(client, cfg.CacheDir(), cfg.Cache.TTL)
		if err != nil {
			// The cache is an accelerator; a locked or broken cache must
			// not keep the wallet from working.
			log.Cache.Warn().Err(err).Msg("cache disabled for this session")
		} else {
			source = cached
			cleanup = func() {
				keys.ClearSensitiveData()
				cached.Close()
			}
		}
	}

	eng := engine.New(keys, feeParams(cfg), client)
	return session.New(keys, eng, source), cleanup, nil
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: klingpayw wallet <create|import|list|delete> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(cfg, args[1:])
	case "import":
		cmdWalletImport(cfg, args[1:])
	case "list":
		cmdWalletList(cfg)
	case "delete":
		cmdWalletDelete(cfg, args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: klingpayw wallet <create|import|list|delete> [flags]", args[0])
	}
}

func cmdWalletCreate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: klingpayw wallet create --name <name>")
	}

	mnemonic, err := keyring.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	createWalletFromMnemonic(cfg, *name, mnemonic)
	fmt.Printf("\nWallet created: %s\n", *name)
}

func cmdWalletImport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: klingpayw wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !keyring.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	createWalletFromMnemonic(cfg, *name, *mnemonic)
	fmt.Printf("Wallet imported: %s\n", *name)
}

// createWalletFromMnemonic derives the seed, stores it encrypted, and
// prints the first external address as a sanity check for the user.
func createWalletFromMnemonic(cfg *config.Config, name, mnemonic string) {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	crypto.Zero(confirm)

	seed, err := keyring.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer crypto.Zero(seed)

	keys := keyring.NewManager(walletNetwork(cfg))
	if !keys.Initialize(mnemonic) {
		fatal("initialize keyring")
	}
	defer keys.ClearSensitiveData()
	acct, err := keys.CreateAccount(0, "Default")
	if err != nil {
		fatal("create account: %v", err)
	}

	ks, err := keystore.New(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	err = ks.Create(name, string(cfg.Network), seed, password, keystore.DefaultParams())
	crypto.Zero(password)
	if err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Printf("Address: %s\n", acct.External[0])
}

func cmdWalletList(cfg *config.Config) {
	ks, err := keystore.New(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdWalletDelete(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet delete", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: klingpayw wallet delete --name <name>")
	}

	// Require the password so a wrong --name (or a stray finger) cannot
	// silently destroy a wallet file.
	ks, err := keystore.New(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := ks.Load(*name, password)
	crypto.Zero(password)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	crypto.Zero(seed)

	if err := ks.Delete(*name); err != nil {
		fatal("delete wallet: %v", err)
	}
	fmt.Printf("Wallet deleted: %s\n", *name)
}

// ── address ─────────────────────────────────────────────────────────────

func cmdAddress(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	newAddr := fs.Bool("new", false, "Derive the next external address")
	count := fs.Uint("count", 1, "Number of external addresses to show")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: klingpayw address --wallet <name> [--new | --count <n>]")
	}

	sess, cleanup, err := openSession(cfg, *walletName)
	if err != nil {
		fatal("%v", err)
	}
	defer cleanup()
	keys := sess.Keyring()

	if *newAddr {
		addr, err := keys.NextAddress(0, false)
		if err != nil {
			fatal("derive address: %v", err)
		}
		fmt.Println(addr)
		return
	}

	for i := uint32(0); i < uint32(*count); i++ {
		addr, err := keys.DeriveAddress(0, i, false)
		if err != nil {
			fatal("derive address: %v", err)
		}
		fmt.Printf("  [%d] %s\n", i, addr)
	}
	reward, err := keys.RewardAddress(0)
	if err != nil {
		fatal("derive reward address: %v", err)
	}
	fmt.Printf("Reward: %s\n", reward)
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: klingpayw balance --wallet <name>")
	}

	sess, cleanup, err := openSession(cfg, *walletName)
	if err != nil {
		fatal("%v", err)
	}
	defer cleanup()

	bal, err := sess.Balance(context.Background(), 0)
	if err != nil {
		fatal("fetch balance: %v", err)
	}

	fmt.Printf("Confirmed:   %d\n", bal.Confirmed)
	if bal.Unconfirmed > 0 {
		fmt.Printf("Unconfirmed: %d\n", bal.Unconfirmed)
	}
	for _, id := range bal.Assets.SortedIDs() {
		fmt.Printf("  %s: %d\n", id, bal.Assets[id])
	}
}

// ── utxos ───────────────────────────────────────────────────────────────

func cmdUTXOs(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("utxos", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: klingpayw utxos --wallet <name>")
	}

	sess, cleanup, err := openSession(cfg, *walletName)
	if err != nil {
		fatal("%v", err)
	}
	defer cleanup()

	utxos, err := sess.SpendableOutputs(context.Background(), 0)
	if err != nil {
		fatal("fetch utxos: %v", err)
	}
	if len(utxos) == 0 {
		fmt.Println("No spendable outputs.")
		return
	}

	for i, u := range utxos {
		fmt.Printf("  [%d] %s  value %d\n", i, u.Outpoint, u.Value)
		for _, id := range u.Assets.SortedIDs() {
			fmt.Printf("       asset %s: %d\n", id, u.Assets[id])
		}
	}
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	toAddr := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount in base units")
	assetsStr := fs.String("assets", "", "Assets to attach: tokenid=amount[,tokenid=amount...]")
	metadataStr := fs.String("metadata", "", "Transaction metadata (JSON)")
	customFee := fs.Uint64("fee", 0, "Custom fee in base units (0 = computed)")
	fs.Parse(args)

	if *walletName == "" || *toAddr == "" || *amountStr == "" {
		fatal("Usage: klingpayw send --wallet <name> --to <addr> --amount <n> [--assets id=amt,...] [--metadata <json>] [--fee <n>]")
	}

	if _, err := types.ParseAddress(*toAddr); err != nil {
		fatal("invalid recipient address: %v", err)
	}

	opts := &session.TransferOptions{CustomFee: *customFee}
	if *assetsStr != "" {
		assets, err := parseAssets(*assetsStr)
		if err != nil {
			fatal("invalid assets: %v", err)
		}
		opts.Assets = assets
	}
	if *metadataStr != "" {
		var meta interface{}
		if err := json.Unmarshal([]byte(*metadataStr), &meta); err != nil {
			fatal("invalid metadata JSON: %v", err)
		}
		opts.Metadata = meta
	}

	sess, cleanup, err := openSession(cfg, *walletName)
	if err != nil {
		fatal("%v", err)
	}
	defer cleanup()

	res, err := sess.CreateAndSubmitTransaction(context.Background(), 0, 0, *toAddr, *amountStr, opts)
	if err != nil {
		fatal("%v", err)
	}
	if !res.Accepted {
		fatal("%v", res.Err)
	}

	fmt.Printf("Submitted: %s\n", res.Hash)
	fmt.Printf("  Fee:    %d\n", res.Fee)
	fmt.Printf("  Output: %d\n", res.TotalOutput)
}

// parseAssets parses "tokenid=amount[,tokenid=amount...]" into a bundle.
func parseAssets(s string) (tx.AssetBundle, error) {
	assets := make(tx.AssetBundle)
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("%q: expected tokenid=amount", part)
		}
		hash, err := types.HexToHash(strings.TrimSpace(kv[0]))
		if err != nil {
			return nil, fmt.Errorf("token id %q: %w", kv[0], err)
		}
		amount, err := strconv.ParseUint(strings.TrimSpace(kv[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("amount %q: %w", kv[1], err)
		}
		if amount == 0 {
			return nil, fmt.Errorf("asset amount must be positive")
		}
		assets[types.TokenID(hash)] = amount
	}
	return assets, nil
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
