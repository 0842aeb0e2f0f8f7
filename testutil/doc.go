/*
Package testutil 提供管道测试共用的确定性 Mock 实现。

所有外部能力（嵌入、生成、重排、引用查证）都有确定性的假实现：
相同输入必然产生相同输出，使检索排序的逐位可复现性可以被直接断言。
*/
package testutil
