package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/metrics"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/prediction"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/referral"
	"github.com/urfave/cli"
)

const (
	SelfAddrFName    = "self"
	OwnerFName       = "owner"
	OperatorFName    = "operator"
	PortFName        = "port"
	MetricsPortFName = "metrics_port"
	MongoHostsFName  = "mongo"
	MongoDBFName     = "mongo_db"
	ReferralFeeFName = "ref_fee"
	IntervalFName    = "interval"
	BufferFName      = "buffer"
)

func main() {
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: SelfAddrFName, Value: "bullbear-main"},
		cli.StringFlag{Name: OwnerFName, Value: "owner"},
		cli.StringFlag{Name: OperatorFName, Value: "operator"},
		cli.IntFlag{Name: PortFName, Value: 3040},
		cli.IntFlag{Name: MetricsPortFName, Value: 9110},
		// 不传mongo就只跑内存状态，不落审计库
		cli.StringFlag{Name: MongoHostsFName, Value: ""},
		cli.StringFlag{Name: MongoDBFName, Value: "bullbear"},
		cli.IntFlag{Name: ReferralFeeFName, Value: 15},
		cli.Int64Flag{Name: IntervalFName, Value: 300},
		cli.Int64Flag{Name: BufferFName, Value: 30},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		panic(err)
	}
}

func run(c *cli.Context) {
	cfg := prediction.DefaultConfig()
	cfg.RoundInterval = c.Int64(IntervalFName)
	cfg.RoundBuffer = c.Int64(BufferFName)

	var db prediction.Database
	if hosts := c.String(MongoHostsFName); hosts != "" {
		db = prediction.NewMarketDBByMongo(strings.Split(hosts, ","), c.String(MongoDBFName))
	}

	selfAddr := c.String(SelfAddrFName)
	owner := c.String(OwnerFName)
	engine := prediction.NewEngine(selfAddr, owner, c.String(OperatorFName), cfg, prediction.NewMemBank(), db)
	registry := referral.NewRegistry(owner, uint64(c.Int(ReferralFeeFName)), []string{selfAddr})
	if err := engine.SetReferralsContract(owner, selfAddr+"-referrals", registry); err != nil {
		panic(err)
	}

	go func() {
		if err := metrics.Serve(c.Int(MetricsPortFName)); err != nil {
			panic(err)
		}
	}()

	srv := prediction.NewOpsServer(c.Int(PortFName), engine, &tokenIsCaller{})
	go func() {
		if err := srv.Run(); err != nil {
			panic(err)
		}
	}()
	log.L.Info("prediction server started")

	signalListen(func() {
		time.Sleep(1 * time.Second)
	})
}

// 占位实现：直接把token当成caller地址。接真实认证服务时替换掉
type tokenIsCaller struct{}

func (t *tokenIsCaller) GetCallerByToken(token string) string { return token }

// listen stop signal
func signalListen(stopFunc func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	stopFunc()
}
