// Package paycap выбирает, какие платежи пакета можно выплатить,
// не превысив недельный лимит пособия.
//
// Вход: лимит за период (вычисляется снаружи), сумма уже выплаченного за
// период и список сумм-кандидатов из текущего пакета. Выход: подмножество
// кандидатов, чья сумма вместе с выплаченным ранее максимальна и не больше
// лимита. Остальные кандидаты отклоняются с сообщением.
//
// Перебор экспоненциален по числу кандидатов (2^n), что приемлемо:
// на одного заявителя за период приходится несколько платежей.
//
// Порядок перебора: по возрастанию размера сочетания, внутри размера в
// лексикографическом порядке индексов. При равных суммах побеждает первое
// найденное сочетание.
package paycap
