package prediction

import (
	"github.com/LeaguesOfHoleHoleShoes/BullBear/common/mongo"
	"github.com/LeaguesOfHoleHoleShoes/BullBear/prediction/model"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

func NewMarketDBByMongo(hosts []string, dbName string) *MarketDBByMongo {
	db := &MarketDBByMongo{
		config: mongo.NewDbConfig(hosts, dbName),
		dbName: dbName,

		roundTN:  "round",
		betTN:    "bet",
		payoutTN: "payout",
	}

	db.migrate()

	return db
}

type MarketDBByMongo struct {
	config *mgo.DialInfo
	dbName string

	roundTN  string
	betTN    string
	payoutTN string
}

// 回合在close和cancel时各落一次，用epoch做upsert
func (db *MarketDBByMongo) SaveRound(r model.Round) error {
	_, err := db.getDB().C(db.roundTN).Upsert(bson.M{"epoch": r.Epoch}, r)
	return err
}

// (useraddress, epoch)有unique索引，重复下注在引擎里就被拒了，这里直接Insert
func (db *MarketDBByMongo) SaveBet(b model.Bet) error {
	return db.getDB().C(db.betTN).Insert(b)
}

func (db *MarketDBByMongo) SavePayout(p model.Payout) error {
	return db.getDB().C(db.payoutTN).Insert(p)
}

func (db *MarketDBByMongo) GetRound(epoch uint64) (result model.Round) {
	db.getDB().C(db.roundTN).Find(bson.M{"epoch": epoch}).One(&result)
	return
}

func (db *MarketDBByMongo) GetBetsByEpoch(epoch uint64) (result []model.Bet) {
	db.getDB().C(db.betTN).Find(bson.M{"epoch": epoch}).All(&result)
	return
}

// userAddr传空则不带该条件
func (db *MarketDBByMongo) GetPayouts(epoch uint64, userAddr string) (result []model.Payout) {
	query := bson.M{"epoch": epoch}
	if userAddr != "" {
		query["useraddress"] = userAddr
	}
	db.getDB().C(db.payoutTN).Find(query).All(&result)
	return
}

func (db *MarketDBByMongo) getDB() *mgo.Database {
	return mongo.GetDB(db.config).DB(db.dbName)
}

func (db *MarketDBByMongo) migrate() {
	db.getDB().C(db.roundTN).EnsureIndex(mgo.Index{Key: []string{"epoch"}, Unique: true})

	db.getDB().C(db.betTN).EnsureIndex(mgo.Index{Key: []string{"useraddress", "epoch"}, Unique: true})
	db.getDB().C(db.betTN).EnsureIndex(mgo.Index{Key: []string{"epoch"}})

	db.getDB().C(db.payoutTN).EnsureIndex(mgo.Index{Key: []string{"epoch"}})
	db.getDB().C(db.payoutTN).EnsureIndex(mgo.Index{Key: []string{"useraddress"}})
}

func (db *MarketDBByMongo) ClearTestData() {
	mongo.ClearAllData(db.config, db.dbName)
}
