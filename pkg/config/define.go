/*
 * Copyright (c) 2025, Tales of AI. All rights reserved.
 * See LICENSE for license information.
 */

package config

const (
	// server
	serverPrefix = "server."
	serverPort   = serverPrefix + "port"

	// health_check
	healthCheckPrefix = "health_check."
	healthCheckEnable = healthCheckPrefix + "enable"

	// pprof
	pprofPrefix = "pprof."
	pprofEnable = pprofPrefix + "enable"
	pprofPort   = pprofPrefix + "port"

	// db
	dbPrefix               = "db."
	dbEnable               = dbPrefix + "enable"
	dbSecretPath           = dbPrefix + "secret_path"
	dbHost                 = dbPrefix + "host"
	dbPort                 = dbPrefix + "port"
	dbName                 = dbPrefix + "dbname"
	dbUser                 = dbPrefix + "user"
	dbPassword             = dbPrefix + "password"
	dbSslMode              = dbPrefix + "ssl_mode"
	dbMaxOpenConns         = dbPrefix + "max_open_conns"
	dbMaxIdleConns         = dbPrefix + "max_idle_conns"
	dbMaxLifetime          = dbPrefix + "max_lifetime_second"
	dbMaxIdleTimeSecond    = dbPrefix + "max_idle_time_second"
	dbConnectTimeoutSecond = dbPrefix + "connect_timeout_second"
	dbRequestTimeoutSecond = dbPrefix + "request_timeout_second"

	// image_api
	imageApiPrefix              = "image_api."
	imageApiBaseUrl             = imageApiPrefix + "base_url"
	imageApiToken               = imageApiPrefix + "token"
	imageApiSecretPath          = imageApiPrefix + "secret_path"
	imageMaxPollingAttempts     = imageApiPrefix + "max_polling_attempts"
	imagePollingIntervalSecond  = imageApiPrefix + "polling_interval_second"
	imageSubmitTimeoutSecond    = imageApiPrefix + "submit_timeout_second"
	luminaPrefix                = imageApiPrefix + "lumina."
	luminaMaxPollingAttempts    = luminaPrefix + "max_polling_attempts"
	luminaPollingIntervalSecond = luminaPrefix + "polling_interval_second"

	// pool.<name>.
	poolPrefix              = "pool."
	poolMin                 = "min"
	poolMax                 = "max"
	poolStep                = "step"
	poolScaleUpSecond       = "scale_up_interval_second"
	poolScaleDownSecond     = "scale_down_interval_second"
	poolIdleHoldSecond      = "idle_hold_second"
	poolAutoscaleTickSecond = poolPrefix + "autoscale_interval_second"

	// notification
	notificationPrefix     = "notification."
	notificationWebhookUrl = notificationPrefix + "webhook_url"
	emailPrefix            = notificationPrefix + "email."
	emailEnable            = emailPrefix + "enable"
	emailHost              = emailPrefix + "host"
	emailPort              = emailPrefix + "port"
	emailUser              = emailPrefix + "user"
	emailPassword          = emailPrefix + "password"
	emailFrom              = emailPrefix + "from"
	emailTo                = emailPrefix + "to"

	// task
	taskPrefix                = "task."
	taskTTLDay                = taskPrefix + "ttl_day"
	taskSweepSchedule         = taskPrefix + "sweep_schedule"
	taskMonitorIntervalSecond = taskPrefix + "monitor_interval_second"
)

// Pool names. Each pool carries its own knobs under pool.<name>.
const (
	PoolDefault = "default"
	PoolLumina  = "lumina"
)
