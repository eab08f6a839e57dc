/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func SetValue(key, value string) {
	viper.Set(key, value)
}

func LoadConfig(path string) error {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getFloat(key string, defaultValue float64) float64 {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetFloat64(key)
}

func getStrings(key string) []string {
	val := viper.GetString(key)
	return removeBlank(strings.Split(val, ","))
}

func removeBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}

func getFromFile(configPath, item string) string {
	path := getString(configPath, "")
	data, err := os.ReadFile(filepath.Join(path, item))
	if err != nil {
		return ""
	}
	key := string(data)
	return strings.TrimRight(key, "\r\n")
}

func GetServerPort() int {
	return getInt(serverPort, 8080)
}

func IsHealthCheckEnabled() bool {
	return getBool(healthCheckEnable, true)
}

func IsPprofEnable() bool {
	return getBool(pprofEnable, false)
}

func GetPprofPort() int {
	return getInt(pprofPort, 6060)
}

func IsDBEnable() bool {
	return getBool(dbEnable, true)
}

func GetDBHost() string {
	if host := getString(dbHost, ""); host != "" {
		return host
	}
	return getFromFile(dbSecretPath, "host")
}

func GetDBPort() int {
	if port := getInt(dbPort, 0); port > 0 {
		return port
	}
	var n int
	if _, err := fmt.Sscanf(getFromFile(dbSecretPath, "port"), "%d", &n); err != nil {
		return 0
	}
	return n
}

func GetDBName() string {
	if name := getString(dbName, ""); name != "" {
		return name
	}
	return getFromFile(dbSecretPath, "dbname")
}

func GetDBUser() string {
	if user := getString(dbUser, ""); user != "" {
		return user
	}
	return getFromFile(dbSecretPath, "user")
}

func GetDBPassword() string {
	if passwd := getString(dbPassword, ""); passwd != "" {
		return passwd
	}
	return getFromFile(dbSecretPath, "password")
}

func GetDBSslMode() string {
	return getString(dbSslMode, "require")
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 100)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 10)
}

func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetime, 600)
}

func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 60)
}

func GetDBConnectTimeoutSecond() int {
	return getInt(dbConnectTimeoutSecond, 10)
}

func GetDBRequestTimeoutSecond() int {
	return getInt(dbRequestTimeoutSecond, 20)
}

// GetImageApiBaseUrl returns the endpoint of the given queue variant,
// falling back to the shared base url.
func GetImageApiBaseUrl(queue string) string {
	if queue != "" {
		if url := getString(imageApiPrefix+queue+".base_url", ""); url != "" {
			return url
		}
	}
	return getString(imageApiBaseUrl, "")
}

func GetImageApiToken() string {
	if token := getString(imageApiToken, ""); token != "" {
		return token
	}
	return getFromFile(imageApiSecretPath, "token")
}

func GetImageMaxPollingAttempts() int {
	return getInt(imageMaxPollingAttempts, 30)
}

func GetImagePollingIntervalSecond() float64 {
	return getFloat(imagePollingIntervalSecond, 2.0)
}

func GetImageSubmitTimeoutSecond() int {
	return getInt(imageSubmitTimeoutSecond, 300)
}

func GetLuminaMaxPollingAttempts() int {
	return getInt(luminaMaxPollingAttempts, 60)
}

func GetLuminaPollingIntervalSecond() float64 {
	return getFloat(luminaPollingIntervalSecond, 5.0)
}

func poolInt(pool, key string, defaultValue int) int {
	return getInt(poolPrefix+pool+"."+key, defaultValue)
}

func GetPoolMin(pool string) int {
	if pool == PoolLumina {
		return poolInt(pool, poolMin, 20)
	}
	return poolInt(pool, poolMin, 10)
}

func GetPoolMax(pool string) int {
	if pool == PoolLumina {
		return poolInt(pool, poolMax, 20)
	}
	return poolInt(pool, poolMax, 50)
}

func GetPoolStep(pool string) int {
	if pool == PoolLumina {
		return poolInt(pool, poolStep, 2)
	}
	return poolInt(pool, poolStep, 5)
}

func GetPoolScaleUpIntervalSecond(pool string) int {
	return poolInt(pool, poolScaleUpSecond, 60)
}

func GetPoolScaleDownIntervalSecond(pool string) int {
	return poolInt(pool, poolScaleDownSecond, 180)
}

// GetPoolIdleHoldSecond returns how long a pool must stay empty before the
// autoscaler may scale it down. Zero disables the hold. The Lumina backend
// is capacity-fragile, aggressive downscale thrashes it.
func GetPoolIdleHoldSecond(pool string) int {
	if pool == PoolLumina {
		return poolInt(pool, poolIdleHoldSecond, 180)
	}
	return poolInt(pool, poolIdleHoldSecond, 0)
}

func GetAutoscaleIntervalSecond() int {
	return getInt(poolAutoscaleTickSecond, 10)
}

func GetNotificationWebhookUrl() string {
	return getString(notificationWebhookUrl, "")
}

func IsEmailEnable() bool {
	return getBool(emailEnable, false)
}

func GetEmailHost() string {
	return getString(emailHost, "")
}

func GetEmailPort() int {
	return getInt(emailPort, 587)
}

func GetEmailUser() string {
	return getString(emailUser, "")
}

func GetEmailPassword() string {
	return getString(emailPassword, "")
}

func GetEmailFrom() string {
	return getString(emailFrom, "")
}

func GetEmailTo() []string {
	return getStrings(emailTo)
}

func GetTaskTTLDay() int {
	return getInt(taskTTLDay, 30)
}

func GetTaskSweepSchedule() string {
	return getString(taskSweepSchedule, "@hourly")
}

func GetMonitorIntervalSecond() int {
	return getInt(taskMonitorIntervalSecond, 5)
}
