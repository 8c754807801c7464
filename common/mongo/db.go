package mongo

import (
	"strings"
	"sync"

	"github.com/LeaguesOfHoleHoleShoes/BullBear/log"
	"go.uber.org/zap"
	"gopkg.in/mgo.v2"
)

var session *mgo.Session
var mutex sync.Mutex

// 获取数据库连接
// 先尝试连admin（readWriteAnyDatabase授权在admin上），不成功则可能只对
// 目标数据库做了授权，再试目标数据库，还不行才是用户名密码真的错了
func GetDB(dbConfig *mgo.DialInfo) *mgo.Session {
	if session != nil {
		return session
	}
	mutex.Lock()
	defer mutex.Unlock()
	if session != nil {
		return session
	}

	log.L.Info("init mongo db session", zap.Strings("hosts", dbConfig.Addrs))
	tmpDbName := dbConfig.Database
	dbConfig.Database = "admin"
	var err error
	if session, err = mgo.DialWithInfo(dbConfig); err != nil {
		dbConfig.Database = tmpDbName
		if session, err = mgo.DialWithInfo(dbConfig); err != nil {
			panic("mongodb连接报错:" + err.Error())
		}
	}
	session.SetMode(mgo.Strong, true)

	return session
}

// 清空某个数据库下的所有数据，只允许对名字带test的库用
func ClearAllData(dbConfig *mgo.DialInfo, dbName string) {
	if strings.Contains(dbName, "test") {
		tmpDB := GetDB(dbConfig).DB(dbName)
		cName, _ := tmpDB.CollectionNames()
		for _, cn := range cName {
			// DropCollection不会清除session中缓存的index，单元测试反复调
			// ClearAllData时会导致后续migrate不到index，因此只RemoveAll
			if _, err := tmpDB.C(cn).RemoveAll(nil); err != nil {
				panic(err)
			}
		}
	} else {
		log.L.Warn("refuse to clear data of a non-test db", zap.String("db", dbName))
	}
}

// 关闭连接
func CloseDb() {
	mutex.Lock()
	defer mutex.Unlock()
	if session != nil {
		session.Close()
		session = nil
	}
}
