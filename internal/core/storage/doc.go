// Package storage 提供持久化存储服务
//
// 基于 BadgerDB，持久化节点集合与永久封禁列表共用一个数据库，
// 通过 kv.Store 的键前缀隔离：
//
//	前缀 | 使用方
//	-----|---------------------
//	p/   | peerbook 持久化节点
//	b/   | banlist 永久封禁
//
// # Fx 模块
//
// Module() 提供 engine.Engine，在 OnStart 启动值日志回收，OnStop 关闭数据库。
package storage
