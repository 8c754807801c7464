package mongo

import (
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"gopkg.in/mgo.v2"
)

// new mongo conf
// 用户名密码优先从部署机的秘密文件读，读不到就用默认值（本地开发环境）
func NewDbConfig(hosts []string, dbName string) *mgo.DialInfo {
	uname := "bull"
	pwd := "bull"
	pwdB, pwdErr := ioutil.ReadFile("/usr/local/.db/mongo.pas")
	unameB, unameErr := ioutil.ReadFile("/usr/local/.db/mongo.uname")
	if unameErr != nil {
		fmt.Println("读取mongo用户名文件出错:" + unameErr.Error())
	}
	if pwdErr != nil {
		fmt.Println("读取mongo密码文件出错:" + pwdErr.Error())
	}
	if unameErr == nil && pwdErr == nil {
		uname = strings.TrimSpace(string(unameB))
		pwd = strings.TrimSpace(string(pwdB))
	}
	return &mgo.DialInfo{
		Addrs:     hosts,
		Database:  dbName,
		Username:  uname,
		Password:  pwd,
		Direct:    false,
		Timeout:   time.Second * 5,
		PoolLimit: 300, // Session.SetPoolLimit
	}
}
