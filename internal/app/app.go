package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/gagliardetto/solana-go"

	"lottochain/internal/codec"
	"lottochain/internal/events"
	"lottochain/internal/ledger"
	"lottochain/internal/lottery"
	"lottochain/internal/state"
)

const (
	AppVersion uint64 = 1
)

type Options struct {
	Home      string
	ProgramID solana.PublicKey
	Params    lottery.Params
	Rent      ledger.Rent
	Logger    log.Logger
	Sink      events.Sink
}

type LottoApp struct {
	*abci.BaseApplication

	logger  log.Logger
	store   *state.Store
	program *lottery.Program
	runtime *ledger.Runtime
	sink    events.Sink

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
	// program events of the block being finalized, published on Commit
	pending []events.Record
}

func New(opts Options) (*LottoApp, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	sink := opts.Sink
	if sink == nil {
		sink = events.NopSink{}
	}
	programID := opts.ProgramID
	if programID.IsZero() {
		programID = lottery.DefaultProgramID
	}
	params := opts.Params
	if params == (lottery.Params{}) {
		params = lottery.DefaultParams()
	}
	rent := opts.Rent
	if rent == (ledger.Rent{}) {
		rent = ledger.DefaultRent()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	store, err := state.Open(opts.Home)
	if err != nil {
		return nil, err
	}
	st, err := store.Load()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if !st.Account(programID).Executable {
		ledger.Deploy(st, programID)
	}
	params, err = pinParams(logger, st, programID, rent, params)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	program, err := lottery.New(programID, params, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &LottoApp{
		BaseApplication: abci.NewBaseApplication(),
		logger:          logger.With("module", "app"),
		store:           store,
		program:         program,
		runtime:         ledger.NewRuntime(logger, rent, program),
		sink:            sink,
		st:              st,
		lastHash:        st.AppHash(),
	}
	return a, nil
}

func (a *LottoApp) ProgramID() solana.PublicKey { return a.program.ID() }
func (a *LottoApp) Rent() ledger.Rent           { return a.runtime.Rent() }
func (a *LottoApp) Params() lottery.Params      { return a.program.Params() }

// pinParams returns the params held in the program's params account. The
// first start writes the configured ones there; after that the stored record
// wins, so tier shares cannot change under games already paying out.
func pinParams(logger log.Logger, st *state.State, programID solana.PublicKey, rent ledger.Rent, configured lottery.Params) (lottery.Params, error) {
	addr, _, err := lottery.ParamsAddress(programID)
	if err != nil {
		return lottery.Params{}, err
	}
	acct := st.Account(addr)
	if acct.Owner.Equals(programID) {
		stored, err := lottery.DecodeParams(acct.Data)
		if err != nil {
			return lottery.Params{}, errorsmod.Wrapf(err, "params account %s", addr)
		}
		if stored != configured {
			logger.Info("configured lottery params differ from chain state; using stored",
				"stored", stored, "configured", configured)
		}
		return stored, nil
	}

	bz, err := configured.MarshalBinary()
	if err != nil {
		return lottery.Params{}, err
	}
	acct.Owner = programID
	acct.Data = bz
	if need := rent.MinimumBalance(lottery.ParamsSize); acct.Lamports < need {
		acct.Lamports = need
	}
	st.SetAccount(addr, acct)
	return configured, nil
}

func (a *LottoApp) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	sinkErr := a.sink.Close()
	if err := a.store.Close(); err != nil {
		return err
	}
	return sinkErr
}

func (a *LottoApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "lottochain (v0)",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *LottoApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, msg, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		err = ledger.ErrInvalidTx.Wrap(err.Error())
	} else {
		_, err = verifyTx(env, msg)
	}
	if err != nil {
		codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
		return &abci.CheckTxResponse{Code: code, Codespace: codespace, Log: logMsg}, nil
	}
	// Nonce and balance checks are left to execution; the mempool state is not tracked.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *LottoApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	gen, err := parseGenesis(req.AppStateBytes)
	if err != nil {
		return nil, err
	}
	for _, acct := range gen.Accounts {
		if err := a.st.Credit(acct.PubKey, acct.Lamports); err != nil {
			return nil, err
		}
	}
	a.lastHash = a.st.AppHash()
	a.logger.Info("genesis applied", "chain_id", req.ChainId, "accounts", len(gen.Accounts))
	return &abci.InitChainResponse{AppHash: a.lastHash}, nil
}

func (a *LottoApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	nowUnix := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, req.Height, nowUnix)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *LottoApp) Commit(ctx context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.store.Save(a.st); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}
	if len(a.pending) > 0 {
		if err := a.sink.Publish(ctx, a.pending); err != nil {
			// Events are a side channel; the committed state stands.
			a.logger.Error("publish events", "height", a.st.Height, "err", err)
		}
		a.pending = nil
	}
	return &abci.CommitResponse{}, nil
}

func (a *LottoApp) deliverTx(txBytes []byte, height int64, nowUnix int64) *abci.ExecTxResult {
	env, msg, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return errResult(ledger.ErrInvalidTx.Wrap(err.Error()))
	}
	tx, err := verifyTx(env, msg)
	if err != nil {
		return errResult(err)
	}

	res, err := a.runtime.Execute(a.st, tx, ledger.Clock{Height: height, UnixTimestamp: nowUnix})
	if err != nil {
		a.logger.Debug("tx rejected", "height", height, "fee_payer", tx.FeePayer.String(), "err", err)
		return errResult(err)
	}
	a.st = res.State

	sum := sha256.Sum256(txBytes)
	txHash := hex.EncodeToString(sum[:])
	out := &abci.ExecTxResult{Code: 0}
	for _, ev := range res.Events {
		out.Events = append(out.Events, abciEvent(ev))
		a.pending = append(a.pending, eventRecord(height, txHash, ev))
	}
	return out
}

func errResult(err error) *abci.ExecTxResult {
	codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Code: code, Codespace: codespace, Log: logMsg}
}

func abciEvent(ev ledger.Event) abci.Event {
	out := abci.Event{Type: ev.Type}
	for _, attr := range ev.Attributes {
		out.Attributes = append(out.Attributes, abci.EventAttribute{Key: attr.Key, Value: attr.Value, Index: true})
	}
	return out
}

func eventRecord(height int64, txHash string, ev ledger.Event) events.Record {
	attrs := make(map[string]string, len(ev.Attributes))
	for _, attr := range ev.Attributes {
		attrs[attr.Key] = attr.Value
	}
	return events.Record{Height: height, TxHash: txHash, Type: ev.Type, Attributes: attrs}
}
