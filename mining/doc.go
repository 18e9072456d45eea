// Package mining 实现 FP-Growth 频繁项集挖掘。
//
// 流程：
//
//	Matrix（布尔交易矩阵）
//	  → BuildIndex：交易索引（会话内 Interner + 按全局频次排序的交易）
//	  → BuildTree：FP-Tree（arena 分配，父指针与 header 链接均为下标）
//	  → Mine：条件模式递归挖掘（单路径直接枚举，顶层按 header 项并发）
//
// 每次挖掘都使用新的 Interner，不同数据集的并发挖掘互不共享标识空间。
// 包内不做任何 I/O，也不打日志。
package mining
